package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maxaizer/autoapply/internal/logger"
	log "github.com/sirupsen/logrus"
)

type apiInterface interface {
	Send(chattable tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(chattable tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

const (
	startCommandName         = "start"
	pendingCommandName       = "pending"
	approveCommandName       = "approve"
	rejectCommandName        = "reject"
	notificationsCommandName = "notifications"

	approveCallbackPrefix = "approve:"
	rejectCallbackPrefix  = "reject:"

	// application ids may be shortened to this many characters in commands
	minIDPrefixLength = 8
)

func sendWithLogError(api apiInterface, chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	msg, err := api.Send(chattable)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeTgApi).
			Errorf("error occured while sending message: %v", err)
	}
	return msg, err
}

func shortID(id string) string {
	if len(id) <= minIDPrefixLength {
		return id
	}
	return id[:minIDPrefixLength]
}

func decisionKeyboard(applicationID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Approve", approveCallbackPrefix+applicationID),
			tgbotapi.NewInlineKeyboardButtonData("Reject", rejectCallbackPrefix+applicationID),
		),
	)
}

func parseCallback(data string) (command string, id string, ok bool) {
	switch {
	case strings.HasPrefix(data, approveCallbackPrefix):
		return approveCommandName, strings.TrimPrefix(data, approveCallbackPrefix), true
	case strings.HasPrefix(data, rejectCallbackPrefix):
		return rejectCommandName, strings.TrimPrefix(data, rejectCallbackPrefix), true
	default:
		return "", "", false
	}
}
