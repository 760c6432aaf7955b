// Package unifiedllm is the model boundary used by the agent loop. It wraps
// the gollm library (github.com/teilomillet/gollm) behind a small
// provider-agnostic client.
//
// # Architecture
//
//   - ProviderAdapter: the interface every backend implements.
//   - Client: routes a Request to the adapter named by Request.Provider (or
//     the default provider) and applies middleware.
//   - Errors: a typed hierarchy (AuthenticationError, RateLimitError, ...)
//     classified by IsRetryable, so callers can decide what to retry.
//   - Retry: a generic retry helper driven by a RetryPolicy.
//
// # Quick Start
//
//	adapter, err := unifiedllm.NewGollmAdapter("openai", os.Getenv("OPENAI_API_KEY"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := unifiedllm.NewClient(unifiedllm.WithProvider("openai", adapter))
//
//	resp, err := client.Complete(ctx, unifiedllm.Request{
//	    Model:    "gpt-4o-mini",
//	    Messages: []unifiedllm.Message{unifiedllm.UserMessage("Hello")},
//	})
//	fmt.Println(resp.Text())
//
// # Model Catalog
//
// A small catalog of known models supplies per-provider defaults:
//
//	info := unifiedllm.GetModelInfo("gpt-4o-mini")
//	latest := unifiedllm.GetLatestModel("anthropic", "")
package unifiedllm
