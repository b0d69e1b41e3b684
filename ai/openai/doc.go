// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package openai provides AI service implementations using OpenAI-compatible APIs.
//
// Embeddings, recommendation text and intent parsing are served through
// langchaingo, so any OpenAI-compatible server (Ollama, vLLM, LocalAI) works.
// Model output is treated as untrusted: code fences are stripped, the first
// JSON object is extracted and repaired, and every string shown to users is
// passed through ai.SanitizeCJK.
//
// # Usage
//
//	config := ai.NewConfig(
//	    ai.WithEmbeddingHost("http://gpu-1:11434"), // /v1 added automatically
//	    ai.WithGeneratorModel("qwen2.5:14b"),
//	)
//
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vector, err := provider.Embedder().EmbedText(ctx, "6인치 RTA 장비")
//	result, err := provider.Recommender().Recommend(ctx, query, equipment)
//	intent, err := provider.IntentParser().ParseIntent(ctx, "실리콘 말고 GaN 식각 장비")
package openai
