package ai

import (
	"fmt"
	"strings"

	"github.com/ourhouse/backend/internal/model/persona"
)

// PromptTemplate defines the structure for persona prompts
type PromptTemplate struct {
	SystemPrompt     string
	PersonalityHints []string
	ContextRules     []string
}

// PersonaPromptManager manages prompt templates for the household personas
type PersonaPromptManager struct {
	templates map[string]*PromptTemplate
}

// NewPersonaPromptManager creates a new prompt manager with default templates
func NewPersonaPromptManager() *PersonaPromptManager {
	manager := &PersonaPromptManager{
		templates: make(map[string]*PromptTemplate),
	}
	manager.loadDefaultTemplates()
	return manager
}

// GetPromptTemplate returns the prompt template for a given persona
func (pm *PersonaPromptManager) GetPromptTemplate(personaID string) (*PromptTemplate, error) {
	template, exists := pm.templates[personaID]
	if !exists {
		return nil, fmt.Errorf("prompt template not found for persona: %s", personaID)
	}
	return template, nil
}

// BuildSystemPrompt creates the system prompt for speaker talking to listener.
func (pm *PersonaPromptManager) BuildSystemPrompt(speaker, listener persona.Persona) string {
	template, err := pm.GetPromptTemplate(speaker.ID)
	if err != nil {
		return pm.buildBasicSystemPrompt(speaker, listener)
	}

	return fmt.Sprintf(`%s

인물 정보:
- 이름: %s
- 관계: %s
- 말투: %s

성격 힌트:
- %s

대화 규칙:
- %s

%s

첫인사 참고: %s`,
		template.SystemPrompt,
		speaker.Name,
		speaker.Relation,
		speaker.Tone,
		strings.Join(template.PersonalityHints, "\n- "),
		strings.Join(template.ContextRules, "\n- "),
		sceneRules(listener),
		speaker.OpeningLine,
	)
}

// buildBasicSystemPrompt covers personas loaded from a catalog file without a template.
func (pm *PersonaPromptManager) buildBasicSystemPrompt(speaker, listener persona.Persona) string {
	return fmt.Sprintf(`당신은 %s(%s)입니다.

인물 설정:
- 말투: %s
- 힌트: %s
- 배경: %s

%s

첫인사 참고: %s`,
		speaker.Name,
		speaker.Relation,
		speaker.Tone,
		speaker.PromptHint,
		speaker.Background,
		sceneRules(listener),
		speaker.OpeningLine,
	)
}

func sceneRules(listener persona.Persona) string {
	who := listener.Name
	if listener.IsOperator() {
		who = "손주(사용자)"
	}
	return fmt.Sprintf(`장면 설정:
명절을 맞아 온 가족이 할머니 댁 거실에 모였습니다. 지금 당신은 %s와 이야기하고 있습니다.
한국어로 한두 문장만 말하고, 이름표나 따옴표 없이 대사만 출력하세요. 이미 한 말은 반복하지 마세요.`, who)
}

// loadDefaultTemplates loads the templates for the seeded household personas
func (pm *PersonaPromptManager) loadDefaultTemplates() {
	pm.templates["aunt"] = &PromptTemplate{
		SystemPrompt: `당신은 조카를 끔찍이 아끼는 고모입니다. 서울에서 꽃집을 하며 명절마다 가장 먼저 도착합니다.`,
		PersonalityHints: []string{
			"수다스럽고 호기심이 많아 근황을 꼬치꼬치 묻는다",
			"반말과 존댓말을 섞어 쓴다",
			"명절 음식과 꽃 이야기를 자주 꺼낸다",
		},
		ContextRules: []string{
			"상대가 어른이면 존댓말을 쓴다",
			"잔소리는 하되 금방 칭찬으로 마무리한다",
		},
	}

	pm.templates["grandma"] = &PromptTemplate{
		SystemPrompt: `당신은 시골집을 지키는 할머니입니다. 손주가 오면 밥부터 챙깁니다.`,
		PersonalityHints: []string{
			"푸근하고 느긋하며 경상도 사투리를 조금 쓴다",
			"먹을 것을 계속 권한다",
			"건강과 안부를 걱정한다",
		},
		ContextRules: []string{
			"짧고 다정하게 말한다",
			"할아버지에게는 오랜 부부답게 편하게 말한다",
		},
	}

	pm.templates["grandfa"] = &PromptTemplate{
		SystemPrompt: `당신은 과묵하지만 속정 깊은 할아버지입니다. 붓글씨를 즐기고 옛날 이야기를 좋아합니다.`,
		PersonalityHints: []string{
			"말수가 적고 문장이 짧다",
			"옛날 이야기를 곁들여 교훈을 준다",
			"공부와 건강을 당부한다",
		},
		ContextRules: []string{
			"느린 어조의 예스러운 말투를 쓴다",
			"칭찬은 짧게, 걱정은 돌려서 말한다",
		},
	}
}
