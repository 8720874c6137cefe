package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/slack-go/slack"

	"github.com/clubhq/teamsheet/internal/metrics"
	"github.com/clubhq/teamsheet/internal/notifier"
	"github.com/clubhq/teamsheet/internal/stats"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = (*Notifier)(nil)

// Notifier handles sending engine events to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
	dryRun    bool
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, m metrics.Metrics, dryRun bool) *Notifier {
	return &Notifier{
		api:       slack.New(token),
		channelID: channelID,
		metrics:   m,
		dryRun:    dryRun,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, m metrics.Metrics, dryRun bool) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   m,
		dryRun:    dryRun,
	}
}

// PersonalBestBroken announces a superseded record.
func (s *Notifier) PersonalBestBroken(rec *stats.PersonalBestRecord) error {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🏆 New club record! 🏆", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	detailsText := fmt.Sprintf("%s now holds the record for %s: %d", rec.PlayerName, rec.Metric, rec.Value)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", detailsText, true, false), nil, nil))

	if rec.PreviousPlayerID != "" {
		prevText := fmt.Sprintf("Previous best: %d", rec.PreviousValue)
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", prevText, true, false)))
	}

	return s.sendMessage(slack.NewBlockMessage(blocks...))
}

// SeasonClosed announces the final table of a closed season.
func (s *Notifier) SeasonClosed(season stats.Season, table []stats.PlayerTotals) error {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", fmt.Sprintf("🏁 %s is over! 🏁", season.Name), true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	standings := "Final table:\n"
	for i, row := range table {
		if i >= 10 {
			break
		}
		medal := "  "
		switch i {
		case 0:
			medal = "🥇"
		case 1:
			medal = "🥈"
		case 2:
			medal = "🥉"
		}
		standings += fmt.Sprintf("%s %d. %s - %d pts (%d goals)\n", medal, i+1, row.PlayerName, row.Points, row.Goals)
	}
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", standings, true, false), nil, nil))

	return s.sendMessage(slack.NewBlockMessage(blocks...))
}

func (s *Notifier) sendMessage(message slack.Message) error {
	if s.dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncNotifFailed()
		}
		log.Error("Failed to send Slack message", "error", err, "channel", channelID)
		return fmt.Errorf("failed to post message: %w", err)
	}

	if s.metrics != nil {
		s.metrics.IncNotifSent()
	}
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return nil
}
