// Package openai implements the adapter for OpenAI-compatible chat
// completion servers (OpenAI, vLLM, llama.cpp server, LM Studio, Ollama's
// /v1 endpoint).
//
// # Basic Usage
//
//	config := providers.ProviderConfig{
//	    Name:    "vllm",
//	    BaseURL: "http://localhost:8000/v1",
//	    Model:   "qwen2.5-7b-instruct",
//	}
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
// # Structured Output
//
// The output constraint maps to the request as follows:
//
//   - schema: response_format {"type": "json_schema", "json_schema": {...}} with strict=true
//   - grammar: top-level "grammar" field (llama.cpp-compatible servers)
//   - plain_json: response_format {"type": "json_object"}
//
// The API key, when set, is sent as a bearer token.
package openai
