// Package dialogue runs the confirmation conversation between a raw user
// request and a committed entry. Nothing is persisted until the user says
// yes to a draft.
package dialogue

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/NotJohn04/commitkeeper/internal/intent"
	"github.com/NotJohn04/commitkeeper/internal/models"
	"go.uber.org/zap"
)

// Structured requests bypass natural language parsing entirely:
// description | datetime | optional duration in minutes.
var structuredPattern = regexp.MustCompile(`^(.+?)\s*\|\s*(.+?)(?:\s*\|\s*(\d+))?\s*$`)

// structuredLayouts are the exact datetime forms accepted in structured
// requests, interpreted in the user's timezone
var structuredLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

var (
	yesTokens = map[string]bool{
		"yes": true, "yea": true, "yep": true, "yeah": true,
		"sure": true, "affirmative": true,
	}
	noTokens = map[string]bool{
		"no": true, "nah": true, "nope": true, "negative": true,
	}
)

// UsageHint is shown when a request cannot be parsed at all
const UsageHint = `I couldn't work that one out. You can spell it out as: description | 2024-01-02 19:00 | 120`

// Outcome is the result of one conversational turn
type Outcome struct {
	Reply   string             `json:"reply"`
	Options []string           `json:"options,omitempty"`
	Created *models.Commitment `json:"created,omitempty"`
}

// CommitmentCreator persists a confirmed draft
type CommitmentCreator interface {
	Create(ctx context.Context, c *models.Commitment) error
}

// Manager owns per-user drafts and the confirmation exchange
type Manager struct {
	extractor *intent.Extractor
	drafts    DraftStore
	creator   CommitmentCreator
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewManager creates a dialogue manager. loc is the timezone user-facing
// times are shown and parsed in.
func NewManager(extractor *intent.Extractor, drafts DraftStore, creator CommitmentCreator, loc *time.Location, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Manager{
		extractor: extractor,
		drafts:    drafts,
		creator:   creator,
		loc:       loc,
		logger:    logger,
		now:       time.Now,
	}
}

// WithClock overrides the manager's time source, used by tests
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Begin turns a raw request into a draft and asks the user to confirm it.
// A request arriving while another draft is outstanding replaces that draft,
// and the reply says so.
func (m *Manager) Begin(ctx context.Context, userID string, kind models.Kind, text string) (Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Outcome{Reply: UsageHint}, nil
	}

	draft, failed := m.parseRequest(ctx, userID, kind, text)
	if failed {
		return Outcome{Reply: UsageHint}, nil
	}

	previous, err := m.drafts.Get(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to check outstanding draft: %w", err)
	}

	if err := m.drafts.Put(ctx, userID, draft); err != nil {
		return Outcome{}, fmt.Errorf("failed to store draft: %w", err)
	}

	reply := m.confirmationLine(draft)
	if draft.Ambiguous {
		reply = "I had to guess the time on this one.\n" + reply
	}
	if previous != nil {
		reply = fmt.Sprintf("Dropping the earlier draft for %q.\n%s", previous.Description, reply)
	}

	return Outcome{Reply: reply, Options: []string{"Yes", "No"}}, nil
}

// parseRequest builds a draft from either the structured form or natural
// language. The bool result reports an unusable request.
func (m *Manager) parseRequest(ctx context.Context, userID string, kind models.Kind, text string) (*models.Draft, bool) {
	now := m.now().In(m.loc)

	if match := structuredPattern.FindStringSubmatch(text); match != nil {
		desc := strings.TrimSpace(match[1])
		if desc == "" {
			return nil, true
		}
		when, ok := parseStructuredTime(strings.TrimSpace(match[2]), m.loc)
		if !ok {
			return nil, true
		}
		duration := models.DefaultDurationMinutes
		if match[3] != "" {
			duration, _ = strconv.Atoi(match[3])
		}
		draft := &models.Draft{
			UserID:          userID,
			Kind:            kind,
			Description:     desc,
			ScheduledAt:     when,
			DurationMinutes: duration,
			CreatedAt:       now,
		}
		// A one-word description cannot be trusted even when the user spelled
		// the time out exactly.
		if draft.DescriptionTokens() < 2 {
			draft.Ambiguous = true
		}
		return draft, false
	}

	result := m.extractor.Extract(ctx, text, now)
	if strings.TrimSpace(result.Description) == "" {
		return nil, true
	}

	return &models.Draft{
		UserID:          userID,
		Kind:            kind,
		Description:     result.Description,
		ScheduledAt:     result.When,
		DurationMinutes: result.DurationMinutes,
		Ambiguous:       result.Ambiguous,
		CreatedAt:       now,
	}, false
}

func parseStructuredTime(value string, loc *time.Location) (time.Time, bool) {
	for _, layout := range structuredLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (m *Manager) confirmationLine(d *models.Draft) string {
	return fmt.Sprintf("%s | %s | %d min\nIs this right? (yes/no)",
		d.Description,
		d.ScheduledAt.In(m.loc).Format("2006-01-02 15:04"),
		d.DurationMinutes)
}

// Reply handles the user's answer to an outstanding draft. Anything that is
// neither a yes nor a no gets a patient re-prompt with the draft repeated.
func (m *Manager) Reply(ctx context.Context, userID, text string) (Outcome, error) {
	draft, err := m.drafts.Get(ctx, userID)
	if err != nil {
		return Outcome{}, fmt.Errorf("failed to load draft: %w", err)
	}
	if draft == nil {
		return Outcome{Reply: "Nothing is waiting for confirmation. Tell me what to schedule."}, nil
	}

	switch {
	case yesTokens[normalizeAnswer(text)]:
		return m.confirm(ctx, userID, draft)
	case noTokens[normalizeAnswer(text)]:
		if err := m.drafts.Delete(ctx, userID); err != nil {
			return Outcome{}, fmt.Errorf("failed to discard draft: %w", err)
		}
		return Outcome{Reply: "Scrapped. Tell me again with a bit more detail."}, nil
	default:
		return Outcome{
			Reply:   "Just need a yes or a no.\n" + m.confirmationLine(draft),
			Options: []string{"Yes", "No"},
		}, nil
	}
}

func (m *Manager) confirm(ctx context.Context, userID string, draft *models.Draft) (Outcome, error) {
	c := &models.Commitment{
		UserID:          draft.UserID,
		Kind:            draft.Kind,
		Description:     draft.Description,
		ScheduledAt:     draft.ScheduledAt,
		DurationMinutes: draft.DurationMinutes,
	}

	if err := m.creator.Create(ctx, c); err != nil {
		return Outcome{}, fmt.Errorf("failed to create commitment: %w", err)
	}

	if err := m.drafts.Delete(ctx, userID); err != nil {
		m.logger.Warn("draft_delete_failed",
			zap.String("user_id", userID),
			zap.Error(err))
	}

	return Outcome{
		Reply: fmt.Sprintf("Locked in: %s at %s.",
			c.Description, c.ScheduledAt.In(m.loc).Format("2006-01-02 15:04")),
		Created: c,
	}, nil
}

func normalizeAnswer(text string) string {
	return strings.Trim(strings.ToLower(strings.TrimSpace(text)), ".!?,")
}
