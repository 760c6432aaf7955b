// Package tools provides the text-in, text-out tools an agent session can
// call: web search, Wikipedia lookup and page fetch.
//
// Every tool reports failures as observation text rather than returning an
// error, so a failing lookup never stops the agent loop.
package tools
