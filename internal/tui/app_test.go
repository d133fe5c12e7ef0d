package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourhouse/backend/internal/conversation"
	"github.com/ourhouse/backend/internal/model/persona"
)

type stubDialogue struct{}

func (stubDialogue) StartSingle(context.Context, string) (string, error) { return "s1", nil }
func (stubDialogue) StartDual(context.Context, string, string) (string, error) {
	return "s1", nil
}
func (stubDialogue) Continue(_ context.Context, _ string, _ *string, speaker string) ([]conversation.Utterance, error) {
	return []conversation.Utterance{{Role: conversation.RoleAgent, Speaker: speaker, Content: "왔느냐"}}, nil
}

func newTestModel(first, second string) model {
	personas := persona.NewMemoryStore(persona.Seed())
	session := conversation.New(stubDialogue{}, personas)
	return newModel(context.Background(), session, personas, first, second)
}

func TestViewShowsParticipantsAndRevealedLine(t *testing.T) {
	m := newTestModel("grandfa", "aunt")

	next, _ := m.Update(stateMsg(conversation.State{
		SessionID:    "s1",
		Participants: [2]string{"grandfa", "aunt"},
		Turn:         1,
		Speaker:      "aunt",
		Input:        conversation.InputNone,
		Revealed:     "왔느",
		Typing:       true,
		Utterances:   []conversation.Utterance{{Role: conversation.RoleAgent, Speaker: "grandfa", Content: "왔느냐"}},
	}))
	view := next.(model).View()

	assert.Contains(t, view, "할아버지")
	assert.Contains(t, view, "고모")
	assert.Contains(t, view, "왔느▌")
	assert.Contains(t, view, "다음 차례: 고모")
	assert.NotContains(t, view, "싶은 말")
}

func TestInputOnlyWhenRequired(t *testing.T) {
	m := newTestModel("me", "grandma")

	next, _ := m.Update(stateMsg(conversation.State{
		SessionID: "s1",
		Speaker:   "me",
		Input:     conversation.InputText,
	}))
	mm := next.(model)
	assert.True(t, mm.input.Focused())
	assert.Contains(t, mm.View(), "싶은 말")

	next, _ = mm.Update(stateMsg(conversation.State{SessionID: "s1", Speaker: "grandma", Input: conversation.InputNone}))
	assert.False(t, next.(model).input.Focused())
}

func TestErrorTextRendered(t *testing.T) {
	m := newTestModel("aunt", "grandma")
	next, _ := m.Update(stateMsg(conversation.State{
		Error:     conversation.KindStartFailed,
		ErrorText: conversation.KindStartFailed.Message(),
	}))
	assert.Contains(t, next.(model).View(), "대화를 시작할 수 없습니다.")
}

func TestEnterAdvancesSession(t *testing.T) {
	m := newTestModel("aunt", "grandfa")
	require.NoError(t, m.session.Initialize(context.Background(), "aunt", "grandfa"))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	msg := cmd()
	done, ok := msg.(actionDoneMsg)
	require.True(t, ok)
	assert.NoError(t, done.err)
	assert.Equal(t, 1, m.session.State().Turn)
	m.session.Close()
}

func TestQuitClosesSession(t *testing.T) {
	m := newTestModel("aunt", "grandfa")
	require.NoError(t, m.session.Initialize(context.Background(), "aunt", "grandfa"))

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.Empty(t, m.session.State().SessionID)
}
