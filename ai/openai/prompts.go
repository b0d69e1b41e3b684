package openai

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/fabmatch/core"
)

const recommendationSchema = `{
  "type": "object",
  "properties": {
    "recommendations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "equipment_id": {"type": "string"},
          "reason": {"type": "string"}
        },
        "required": ["equipment_id", "reason"]
      }
    },
    "explanation": {"type": "string"}
  },
  "required": ["recommendations", "explanation"]
}`

const recommendationSystemPrompt = `당신은 반도체/디스플레이 공정 장비 추천 전문가입니다.
사용자 질의와 검색된 장비 목록을 보고 가장 적합한 장비를 골라 추천 이유를 설명하세요.

규칙:
- 반드시 한국어로만 답하세요. 한자나 중국어를 쓰지 마세요.
- 목록에 있는 장비 ID만 사용하세요. 없는 장비를 만들어내지 마세요.
- 최대 3개까지, 적합한 순서대로 추천하세요.
- 추천 이유에는 웨이퍼 크기, 재료, 온도 범위처럼 질의 조건과 맞는 근거를 쓰세요.
- 출력은 아래 스키마를 따르는 JSON 객체 하나뿐이어야 합니다. 앞뒤에 다른 글을 쓰지 마세요.

%s`

const streamSystemPrompt = `당신은 반도체/디스플레이 공정 장비 추천 전문가입니다.
사용자 질의와 검색된 장비 목록을 보고 적합한 장비를 추천하세요.

규칙:
- 반드시 한국어로만 답하세요. 한자나 중국어를 쓰지 마세요.
- 목록에 있는 장비만 언급하세요.
- 장비마다 이름과 추천 이유를 짧게 설명하고, 마지막에 한두 문장으로 정리하세요.`

const intentPromptTemplate = `당신은 반도체/디스플레이 장비 검색 시스템의 의도 파악 모듈입니다.
사용자의 질의를 분석하여 JSON 형태로 구조화된 정보를 추출하세요.

## 추출해야 할 정보:
1. query_type: 질의 유형
   - "simple": 단순 검색 (예: "MOCVD 장비 추천해줘")
   - "compound": 복합 조건 (예: "A와 B 둘 다", "A 또는 B")
   - "negative": 부정 조건 포함 (예: "~가 아닌", "~없는", "~제외")
   - "abstract": 추상적 질의 (예: "이런 상황에서", "어떤 장비가 좋을까")

2. intent: 사용자 의도
   - "equipment_search": 장비 검색/추천
   - "comparison": 장비 비교
   - "general_question": 일반 질문

3. 조건 추출:
   - wafer_sizes: 웨이퍼 사이즈 (예: ["6 inch", "8 inch"])
   - materials: 재료 (예: ["Si", "GaN", "GaAs"])
   - categories: 장비 카테고리 (예: ["증착", "열처리", "식각"])
   - processes: 공정 (예: ["MOCVD", "RTA", "PECVD"])
   - temp_min, temp_max: 온도 범위
   - institution: 기관명

4. 부정 조건 (제외할 것):
   - exclude_materials: 제외할 재료
   - exclude_categories: 제외할 카테고리
   - exclude_temp_min, exclude_temp_max: 제외할 온도 범위

5. or_conditions: 여러 조건 중 하나 (예: [{"process": "MOCVD"}, {"category": "식각"}])

6. search_query: 검색에 사용할 정제된 쿼리

## 예시:

입력: "6인치 Si 웨이퍼용 RTA 장비 찾아줘"
출력:
{"query_type": "simple", "intent": "equipment_search", "wafer_sizes": ["6 inch"], "materials": ["Si"], "processes": ["RTA"], "categories": ["열처리"], "search_query": "6인치 Si RTA 열처리 장비"}

입력: "800도 이하로만 동작하는 열처리 장비"
출력:
{"query_type": "negative", "intent": "equipment_search", "categories": ["열처리"], "temp_max": 800, "exclude_temp_min": 800, "search_query": "800도 이하 열처리 장비"}

입력: "MOCVD랑 PECVD 장비 둘 다 추천해줘"
출력:
{"query_type": "compound", "intent": "equipment_search", "processes": ["MOCVD", "PECVD"], "categories": ["증착"], "or_conditions": [{"process": "MOCVD"}, {"process": "PECVD"}], "search_query": "MOCVD PECVD 증착 장비"}

입력: "GaN 에피 성장하려는데 어떤 장비가 좋을까?"
출력:
{"query_type": "abstract", "intent": "equipment_search", "materials": ["GaN"], "processes": ["에피택시", "MOCVD"], "categories": ["증착"], "search_query": "GaN 에피택시 MOCVD 증착 장비"}

## 사용자 질의:
%s

## JSON 응답 (반드시 유효한 JSON만 출력):
`

const descriptionLimit = 200

func buildRecommendationSystemPrompt() string {
	return fmt.Sprintf(recommendationSystemPrompt, recommendationSchema)
}

func buildRecommendationPrompt(query string, candidates []*core.Equipment) string {
	return fmt.Sprintf("사용자 질의: %s\n\n검색된 장비 목록:\n%s\n\n"+
		"위 장비들 중에서 사용자 질의에 가장 적합한 장비를 추천해주세요.\n반드시 JSON 형식으로 응답하세요.",
		query, formatEquipmentContext(candidates))
}

func buildStreamPrompt(query string, candidates []*core.Equipment) string {
	n := len(candidates)
	return fmt.Sprintf("사용자 질의: %s\n\n검색된 장비 목록 (총 %d개):\n%s\n\n"+
		"[중요] 위 %d개 장비만 추천하세요. 같은 장비를 여러 번 설명하지 마세요.",
		query, n, formatEquipmentContext(candidates), n)
}

func buildIntentPrompt(query string) string {
	return fmt.Sprintf(intentPromptTemplate, query)
}

// formatEquipmentContext renders candidates as the model-facing equipment list.
func formatEquipmentContext(candidates []*core.Equipment) string {
	parts := make([]string, 0, len(candidates))
	for _, e := range candidates {
		var b strings.Builder
		fmt.Fprintf(&b, "[%s] %s\n", e.ID, e.Name)
		fmt.Fprintf(&b, "- 카테고리: %s\n", orDash(e.Category))
		fmt.Fprintf(&b, "- 파트: %s\n", orDash(e.Part))
		fmt.Fprintf(&b, "- 웨이퍼: %s\n", strings.Join(e.WaferSizes, ", "))
		fmt.Fprintf(&b, "- 재료: %s\n", strings.Join(e.Materials, ", "))
		fmt.Fprintf(&b, "- 온도: %s\n", temperatureRange(e))
		fmt.Fprintf(&b, "- 용도: %s\n", orDash(truncateRunes(e.Description, descriptionLimit)))
		fmt.Fprintf(&b, "- 기관: %s\n", orDash(e.Institution))
		parts = append(parts, b.String())
	}
	return strings.Join(parts, "\n")
}

func temperatureRange(e *core.Equipment) string {
	if e.TempMin == nil && e.TempMax == nil {
		return ""
	}
	bound := func(v *float64) string {
		if v == nil {
			return "?"
		}
		return fmt.Sprintf("%g", *v)
	}
	return bound(e.TempMin) + "~" + bound(e.TempMax) + "℃"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
