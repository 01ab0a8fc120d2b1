package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	botApi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/autoapply/internal/domain/events"
	"github.com/maxaizer/autoapply/internal/domain/models"
	"github.com/maxaizer/autoapply/internal/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockApi struct {
	mu           sync.Mutex
	SentMessages []botApi.Chattable
	Requests     []botApi.Chattable
}

func (m *mockApi) Send(chattable botApi.Chattable) (botApi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentMessages = append(m.SentMessages, chattable)
	return botApi.Message{}, nil
}

func (m *mockApi) Request(chattable botApi.Chattable) (*botApi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, chattable)
	return &botApi.APIResponse{Ok: true}, nil
}

func (m *mockApi) GetUpdatesChan(_ botApi.UpdateConfig) botApi.UpdatesChannel {
	ch := make(chan botApi.Update)
	close(ch)
	return ch
}

func (m *mockApi) StopReceivingUpdates() {}

func (m *mockApi) lastText(t *testing.T) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.SentMessages)
	msg, ok := m.SentMessages[len(m.SentMessages)-1].(botApi.MessageConfig)
	require.True(t, ok)
	return msg.Text
}

type mockApplications struct {
	apps []models.PendingApplication
}

func (m *mockApplications) ListByUser(_ context.Context, userID int64, status models.ApplicationStatus,
	_ int) ([]models.PendingApplication, error) {
	result := make([]models.PendingApplication, 0)
	for _, app := range m.apps {
		if app.UserID == userID && (status == "" || app.Status == status) {
			result = append(result, app)
		}
	}
	return result, nil
}

type mockNotifications struct {
	records []models.NotificationRecord
	read    []uint
}

func (m *mockNotifications) ListByUser(_ context.Context, _ int64, _ bool) ([]models.NotificationRecord, error) {
	return m.records, nil
}

func (m *mockNotifications) MarkRead(_ context.Context, id uint, _ int64) error {
	m.read = append(m.read, id)
	return nil
}

type mockDecider struct {
	mock.Mock
}

func (m *mockDecider) Decide(ctx context.Context, id string, decision models.Decision,
	overrides *lifecycle.Overrides) (*models.PendingApplication, error) {
	args := m.Called(ctx, id, decision, overrides)
	app, _ := args.Get(0).(*models.PendingApplication)
	return app, args.Error(1)
}

const userID int64 = 100

func pendingApp(id string) models.PendingApplication {
	return models.PendingApplication{
		ID: id, UserID: userID, JobTitle: "Junior Developer", JobCompany: "Acme",
		RecipientEmail: "hr@acme.io", MatchScore: 0.8, Status: models.StatusPendingApproval,
		ExpiresAt: time.Now().Add(72 * time.Hour), CoverLetter: "Dear Acme team,",
	}
}

type botFixture struct {
	bot           *Bot
	api           *mockApi
	bus           EventBus.Bus
	decider       *mockDecider
	notifications *mockNotifications
}

func newBotFixture(t *testing.T, apps ...models.PendingApplication) botFixture {
	return newBotFixtureWith(t, true, apps...)
}

func newBotFixtureWith(t *testing.T, submitOnApproval bool, apps ...models.PendingApplication) botFixture {
	f := botFixture{
		api:           &mockApi{},
		bus:           EventBus.New(),
		decider:       &mockDecider{},
		notifications: &mockNotifications{},
	}
	b, err := newBot(f.api, f.bus, Dependencies{
		Applications:  &mockApplications{apps: apps},
		Notifications: f.notifications,
		Lifecycle:     f.decider,

		SubmitOnApproval: submitOnApproval,
	})
	require.NoError(t, err)
	f.bot = b
	return f
}

func command(text string) *botApi.Message {
	name := strings.Fields(text)[0]
	return &botApi.Message{
		Text:     text,
		From:     &botApi.User{ID: userID},
		Chat:     &botApi.Chat{ID: userID, Type: "private"},
		Entities: []botApi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}},
	}
}

func Test_NewBot_WhenDependenciesMissing_ShouldFail(t *testing.T) {
	_, err := newBot(&mockApi{}, EventBus.New(), Dependencies{})
	assert.Error(t, err)

	_, err = newBot(&mockApi{}, nil, Dependencies{})
	assert.Error(t, err)
}

func Test_PendingCmd_ShouldListShortIDs(t *testing.T) {
	f := newBotFixture(t, pendingApp("0a1b2c3d-0000-4000-8000-000000000001"))

	f.bot.handleMessage(command("/pending"))

	text := f.api.lastText(t)
	assert.Contains(t, text, "0a1b2c3d")
	assert.NotContains(t, text, "0a1b2c3d-0000")
	assert.Contains(t, text, "Junior Developer at Acme, match 80%")
}

func Test_ApproveCmd_WhenPrefixMatches_ShouldDecide(t *testing.T) {
	app := pendingApp("0a1b2c3d-0000-4000-8000-000000000001")
	f := newBotFixture(t, app)
	approved := app
	approved.Status = models.StatusApproved
	f.decider.On("Decide", mock.Anything, app.ID, models.DecisionApproved, (*lifecycle.Overrides)(nil)).
		Return(&approved, nil).Once()

	f.bot.handleMessage(command("/approve 0a1b2c3d"))

	f.decider.AssertExpectations(t)
	assert.Contains(t, f.api.lastText(t), "Approved: Junior Developer at Acme")
}

func Test_ApproveCmd_WhenIDAmbiguousOrMissing_ShouldNotDecide(t *testing.T) {
	f := newBotFixture(t,
		pendingApp("0a1b2c3d-0000-4000-8000-000000000001"),
		pendingApp("0a1b2c3d-0000-4000-8000-000000000002"))

	f.bot.handleMessage(command("/approve 0a1b2c3d"))
	assert.Contains(t, f.api.lastText(t), "Several applications match")

	f.bot.handleMessage(command("/approve ffffffff"))
	assert.Contains(t, f.api.lastText(t), "No pending application")

	f.bot.handleMessage(command("/approve"))
	assert.Contains(t, f.api.lastText(t), "Specify the application id")

	f.decider.AssertNotCalled(t, "Decide", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func Test_RejectCmd_WhenAlreadyDecided_ShouldExplain(t *testing.T) {
	app := pendingApp("0a1b2c3d-0000-4000-8000-000000000001")
	f := newBotFixture(t, app)
	f.decider.On("Decide", mock.Anything, app.ID, models.DecisionRejected, (*lifecycle.Overrides)(nil)).
		Return(nil, fmt.Errorf("%w: REJECTED", lifecycle.ErrInvalidTransition))

	f.bot.handleMessage(command("/reject 0a1b2c3d-0000"))

	assert.Equal(t, "This application can no longer be decided.", f.api.lastText(t))
}

func Test_NotificationsCmd_ShouldMarkShownAsRead(t *testing.T) {
	f := newBotFixture(t)
	f.notifications.records = []models.NotificationRecord{
		{ID: 1, Title: "Application sent", Body: "Junior Developer at Acme was sent."},
		{ID: 2, Title: "Application expired", Body: "Intern at Beta expired without a decision."},
	}

	f.bot.handleMessage(command("/notifications"))

	text := f.api.lastText(t)
	assert.Contains(t, text, "Application sent")
	assert.Contains(t, text, "Application expired")
	assert.Equal(t, []uint{1, 2}, f.notifications.read)
}

func Test_OnApplicationCreated_ShouldSendDecisionKeyboard(t *testing.T) {
	f := newBotFixture(t)
	app := pendingApp("0a1b2c3d-0000-4000-8000-000000000001")

	f.bus.Publish(events.ApplicationTransitionedTopic, events.ApplicationTransitioned{
		Application: app, To: models.StatusPendingApproval, Activity: models.ActivityGenerated,
	})

	require.Len(t, f.api.SentMessages, 1)
	msg := f.api.SentMessages[0].(botApi.MessageConfig)
	assert.Equal(t, userID, msg.ChatID)
	assert.Contains(t, msg.Text, "Dear Acme team,")
	keyboard, ok := msg.ReplyMarkup.(botApi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "approve:"+app.ID, *keyboard.InlineKeyboard[0][0].CallbackData)
}

func Test_OnApplicationApproved_ShouldStaySilent(t *testing.T) {
	f := newBotFixture(t)

	f.bus.Publish(events.ApplicationTransitionedTopic, events.ApplicationTransitioned{
		Application: pendingApp("x"), From: models.StatusPendingApproval, To: models.StatusApproved,
	})

	assert.Empty(t, f.api.SentMessages)
}

func Test_Callback_WhenRejectPressed_ShouldDecideAndAnswer(t *testing.T) {
	app := pendingApp("0a1b2c3d-0000-4000-8000-000000000001")
	f := newBotFixture(t, app)
	rejected := app
	rejected.Status = models.StatusRejected
	f.decider.On("Decide", mock.Anything, app.ID, models.DecisionRejected, (*lifecycle.Overrides)(nil)).
		Return(&rejected, nil).Once()

	f.bot.handleCallback(&botApi.CallbackQuery{
		ID:      "cb-1",
		From:    &botApi.User{ID: userID},
		Message: &botApi.Message{Chat: &botApi.Chat{ID: userID}},
		Data:    "reject:" + app.ID,
	})

	f.decider.AssertExpectations(t)
	require.Len(t, f.api.Requests, 1)
	assert.Equal(t, "Rejected: Junior Developer at Acme.", f.api.lastText(t))
}

func Test_TruncateMessage_WhenTooLong_ShouldFitLimit(t *testing.T) {
	text := strings.Repeat("я", maxMessageRunes+10)

	got := truncateMessage(text)

	assert.Equal(t, maxMessageRunes, len([]rune(got)))
	assert.Equal(t, "short", truncateMessage("short"))
}

func Test_ApproveCmd_WhenSubmissionIsManual_ShouldNotPromiseSending(t *testing.T) {
	app := pendingApp("0a1b2c3d-0000-4000-8000-000000000001")
	f := newBotFixtureWith(t, false, app)
	approved := app
	approved.Status = models.StatusApproved
	f.decider.On("Decide", mock.Anything, app.ID, models.DecisionApproved, (*lifecycle.Overrides)(nil)).
		Return(&approved, nil).Once()

	f.bot.handleMessage(command("/approve 0a1b2c3d"))

	assert.Contains(t, f.api.lastText(t), "once submission is triggered")
}
