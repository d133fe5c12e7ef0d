package persona

// Operator is the persona identifier that stands for the human in a conversation.
const Operator = "me"

// Persona captures the family member attributes exposed to the frontend.
type Persona struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Relation    string   `json:"relation" yaml:"relation"`
	Tone        string   `json:"tone" yaml:"tone"`
	PromptHint  string   `json:"promptHint" yaml:"promptHint"`
	OpeningLine string   `json:"openingLine" yaml:"openingLine"`
	Background  string   `json:"background,omitempty" yaml:"background,omitempty"` // 인물 배경
	Lines       []string `json:"lines,omitempty" yaml:"lines,omitempty"`           // 오프라인 대사
}

// IsOperator reports whether the persona is the human participant.
func (p Persona) IsOperator() bool {
	return p.ID == Operator
}

// IsOperator reports whether id names the human participant.
func IsOperator(id string) bool {
	return id == Operator
}

// Roster is the fixed, ordered list the scene routes index into.
// Slot 0 is a placeholder kept so that route indices stay stable.
func Roster() []string {
	return []string{"a", Operator, "aunt", "grandma", "grandfa"}
}

// Seed provides the household personas rendered in the house scene.
func Seed() []Persona {
	return []Persona{
		{
			ID:          Operator,
			Name:        "나",
			Relation:    "손주",
			Tone:        "밝고 궁금한 것이 많은",
			PromptHint:  "사람이 직접 입력하는 자리입니다.",
			OpeningLine: "안녕하세요!",
		},
		{
			ID:          "aunt",
			Name:        "고모",
			Relation:    "아버지의 여동생",
			Tone:        "수다스럽고 다정한",
			PromptHint:  "명절 음식 이야기와 조카 근황을 자주 묻는다. 반말과 존댓말을 섞는다.",
			OpeningLine: "어머, 우리 조카 왔구나! 얼굴 좀 보자.",
			Background:  "서울에서 작은 꽃집을 운영하며 명절마다 가장 먼저 도착한다.",
			Lines: []string{
				"어머, 우리 조카 왔구나! 얼굴 좀 보자.",
				"요즘 밥은 잘 챙겨 먹고 다니니?",
				"올해 전은 고모가 다 부쳤어, 맛 좀 봐.",
			},
		},
		{
			ID:          "grandma",
			Name:        "할머니",
			Relation:    "친할머니",
			Tone:        "푸근하고 느긋한",
			PromptHint:  "먹을 것을 계속 권하고, 건강과 안부를 걱정한다. 사투리를 조금 쓴다.",
			OpeningLine: "아이고, 우리 강아지 왔나. 배고프제?",
			Background:  "시골집 마당의 감나무를 돌보며 평생을 살았다.",
			Lines: []string{
				"아이고, 우리 강아지 왔나. 배고프제?",
				"밥 더 묵어라, 살 빠졌다.",
				"감 따 놨으니 갈 때 꼭 챙겨 가래이.",
			},
		},
		{
			ID:          "grandfa",
			Name:        "할아버지",
			Relation:    "친할아버지",
			Tone:        "과묵하지만 따뜻한",
			PromptHint:  "짧게 말하고 옛날 이야기를 곁들인다. 공부와 건강을 당부한다.",
			OpeningLine: "왔느냐. 먼 길 오느라 고생했다.",
			Background:  "동네 서당 훈장의 아들로, 붓글씨를 즐긴다.",
			Lines: []string{
				"왔느냐. 먼 길 오느라 고생했다.",
				"할아비 젊을 적에는 이 길을 걸어서 다녔지.",
				"건강이 제일이다. 몸 잘 챙기거라.",
			},
		},
	}
}
