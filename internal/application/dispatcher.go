package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"group-broadcast-gateway/internal/domain"
	"group-broadcast-gateway/internal/domain/model"
	"group-broadcast-gateway/internal/domain/ports/adapter"
	"group-broadcast-gateway/internal/infra/logging"
	"group-broadcast-gateway/internal/infra/metrics"
	"group-broadcast-gateway/internal/usecase"
)

const timeLayout = "2006-01-02 15:04"

// InboundMessage is one text message as delivered by the transport.
type InboundMessage struct {
	SenderID   string
	SenderName string
	ChatID     string
	ChatTitle  string
	IsGroup    bool
	Text       string
}

type Translator interface {
	T(key string, args ...interface{}) string
}

type DispatcherConfig struct {
	AdminID           string
	AdminContact      string
	ActivationCommand string
	UsageWindow       time.Duration
	Dev               bool
}

// Dispatcher routes inbound commands to use cases and renders the reply.
// It never returns an error: every failure becomes a terse reply.
type Dispatcher struct {
	activation usecase.ActivationUseCase
	auth       usecase.AuthorizationUseCase
	users      usecase.UserUseCase
	groups     usecase.GroupUseCase
	broadcasts usecase.BroadcastUseCase
	stats      usecase.StatsUseCase
	messenger  adapter.Messenger
	tr         Translator

	adminID       string
	adminContact  string
	activationCmd string
	window        time.Duration
	dev           bool
	log           *zerolog.Logger
}

func NewDispatcher(
	activation usecase.ActivationUseCase,
	auth usecase.AuthorizationUseCase,
	users usecase.UserUseCase,
	groups usecase.GroupUseCase,
	broadcasts usecase.BroadcastUseCase,
	stats usecase.StatsUseCase,
	messenger adapter.Messenger,
	tr Translator,
	cfg DispatcherConfig,
	logger *zerolog.Logger,
) *Dispatcher {
	adminID, err := model.NormalizePhone(cfg.AdminID)
	if err != nil {
		adminID = strings.TrimSpace(cfg.AdminID)
	}
	activationCmd := strings.ToLower(strings.TrimSpace(cfg.ActivationCommand))
	if activationCmd == "" {
		activationCmd = "/activate"
	}
	contact := cfg.AdminContact
	if contact == "" {
		contact = cfg.AdminID
	}
	l := logger.With().Str("component", "dispatcher").Logger()
	return &Dispatcher{
		activation:    activation,
		auth:          auth,
		users:         users,
		groups:        groups,
		broadcasts:    broadcasts,
		stats:         stats,
		messenger:     messenger,
		tr:            tr,
		adminID:       adminID,
		adminContact:  contact,
		activationCmd: activationCmd,
		window:        cfg.UsageWindow,
		dev:           cfg.Dev,
		log:           &l,
	}
}

// Handle processes one message and returns the reply for the originating
// chat. An empty reply means nothing should be sent.
func (d *Dispatcher) Handle(ctx context.Context, msg InboundMessage) string {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return ""
	}
	cmd, arg := parseCommand(text)
	if cmd == "" && msg.IsGroup {
		return ""
	}

	sender, err := model.NormalizePhone(msg.SenderID)
	if err != nil {
		sender = strings.TrimSpace(msg.SenderID)
	}
	ctx = logging.WithPhone(ctx, logging.Redact(sender, d.dev))
	ctx = logging.WithChatID(ctx, msg.ChatID)

	if sender != "" && sender == d.adminID {
		return d.handleAdmin(ctx, cmd, arg)
	}
	if cmd == d.activationCmd {
		return d.handleActivate(ctx, sender, arg)
	}

	ok, err := d.auth.IsAuthorized(ctx, sender)
	if err != nil {
		return d.fail(ctx, cmdLabel(cmd), err)
	}
	if !ok {
		metrics.IncCommand(cmdLabel(cmd), "unauthorized")
		return d.tr.T("access_required", d.adminContact, d.activationCmd)
	}

	switch cmd {
	case "/status":
		return d.handleStatus(ctx, sender)
	case "/addgroup":
		return d.handleAddGroup(ctx, sender, msg)
	case "/broadcast":
		return d.handleBroadcast(ctx, sender, msg, arg)
	case "/help", "/start":
		metrics.IncCommand("help", "ok")
		return d.tr.T("user_help")
	case "":
		return d.tr.T("user_help")
	default:
		metrics.IncCommand("unknown", "rejected")
		return d.tr.T("unknown_command")
	}
}

func (d *Dispatcher) handleAdmin(ctx context.Context, cmd, arg string) string {
	switch cmd {
	case "/gencode":
		return d.handleGenCode(ctx, arg)
	case "/stats":
		return d.handleStats(ctx)
	case "/help", "/start":
		metrics.IncCommand("help", "ok")
		return d.tr.T("admin_help")
	default:
		return ""
	}
}

func (d *Dispatcher) handleGenCode(ctx context.Context, arg string) string {
	fields := strings.Fields(arg)
	if len(fields) == 0 {
		metrics.IncCommand("gencode", "rejected")
		return d.tr.T("gencode_usage")
	}
	target := strings.Join(fields, "")
	code, err := d.activation.Issue(ctx, target)
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		metrics.IncCommand("gencode", "rejected")
		return d.tr.T("gencode_invalid_phone", target)
	case err != nil:
		return d.fail(ctx, "gencode", err)
	}
	metrics.IncCommand("gencode", "ok")
	return d.tr.T("gencode_success", code.Phone, code.Code, code.ExpiresAt.UTC().Format(timeLayout))
}

func (d *Dispatcher) handleStats(ctx context.Context) string {
	s, err := d.stats.Totals(ctx)
	if err != nil {
		return d.fail(ctx, "stats", err)
	}
	metrics.IncCommand("stats", "ok")
	return d.tr.T("stats", s.TotalUsers, s.ActiveUsers, s.TotalCodes, s.UsedCodes, s.TotalGroups)
}

func (d *Dispatcher) handleActivate(ctx context.Context, sender, arg string) string {
	if strings.TrimSpace(arg) == "" {
		metrics.IncCommand("activate", "rejected")
		return d.tr.T("activate_usage", d.activationCmd)
	}
	u, err := d.activation.Redeem(ctx, sender, arg)
	switch {
	case errors.Is(err, domain.ErrInvalidCode):
		metrics.IncCommand("activate", "rejected")
		return d.tr.T("activate_failed")
	case errors.Is(err, domain.ErrInvalidArgument):
		metrics.IncCommand("activate", "rejected")
		return d.tr.T("activate_usage", d.activationCmd)
	case err != nil:
		return d.fail(ctx, "activate", err)
	}
	metrics.IncCommand("activate", "ok")
	expires, _ := u.ExpiresAt(d.window)
	return d.tr.T("activate_success", expires.UTC().Format(timeLayout))
}

func (d *Dispatcher) handleStatus(ctx context.Context, sender string) string {
	st, err := d.users.Status(ctx, sender)
	if err != nil {
		return d.fail(ctx, "status", err)
	}
	metrics.IncCommand("status", "ok")
	if st.Active && st.ExpiresAt != nil {
		return d.tr.T("status_active", st.DaysRemaining, st.ExpiresAt.UTC().Format(timeLayout), st.GroupCount)
	}
	return d.tr.T("status_inactive", st.GroupCount)
}

func (d *Dispatcher) handleAddGroup(ctx context.Context, sender string, msg InboundMessage) string {
	if !msg.IsGroup {
		metrics.IncCommand("addgroup", "rejected")
		return d.tr.T("addgroup_not_group")
	}
	g, created, err := d.groups.Register(ctx, msg.ChatID, msg.ChatTitle, sender)
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		metrics.IncCommand("addgroup", "rejected")
		return d.tr.T("addgroup_not_group")
	case err != nil:
		return d.fail(ctx, "addgroup", err)
	}
	metrics.IncCommand("addgroup", "ok")
	if created {
		return d.tr.T("addgroup_success", g.Name)
	}
	return d.tr.T("addgroup_exists", g.AddedBy, g.AddedAt.UTC().Format(timeLayout))
}

func (d *Dispatcher) handleBroadcast(ctx context.Context, sender string, msg InboundMessage, arg string) string {
	text := strings.TrimSpace(arg)
	if text == "" {
		metrics.IncCommand("broadcast", "rejected")
		return d.tr.T("broadcast_usage")
	}
	name := strings.TrimSpace(msg.SenderName)
	if name == "" {
		name = sender
	}

	replyTo := msg.ChatID
	// the summary outlives the inbound request
	notifyCtx := context.WithoutCancel(ctx)
	done := func(res *model.BroadcastResult, err error) {
		if err != nil || res == nil {
			return
		}
		sendCtx, cancel := context.WithTimeout(notifyCtx, 15*time.Second)
		defer cancel()
		summary := d.tr.T("broadcast_done", res.Success, res.Failed, res.Skipped)
		if err := d.messenger.SendText(sendCtx, replyTo, summary); err != nil {
			logging.With(notifyCtx, d.log).Warn().Err(err).Str("job_id", res.JobID).Msg("failed to deliver broadcast summary")
		}
	}

	job, err := d.broadcasts.Start(ctx, sender, name, text, done)
	switch {
	case errors.Is(err, domain.ErrNoGroups):
		metrics.IncCommand("broadcast", "rejected")
		return d.tr.T("broadcast_no_groups")
	case errors.Is(err, domain.ErrBroadcastInProgress):
		metrics.IncCommand("broadcast", "rejected")
		return d.tr.T("broadcast_in_progress")
	case errors.Is(err, domain.ErrInvalidArgument):
		metrics.IncCommand("broadcast", "rejected")
		return d.tr.T("broadcast_usage")
	case err != nil:
		return d.fail(ctx, "broadcast", err)
	}
	metrics.IncCommand("broadcast", "ok")
	return d.tr.T("broadcast_started", job.Total)
}

func (d *Dispatcher) fail(ctx context.Context, command string, err error) string {
	metrics.IncCommand(command, "error")
	logging.With(ctx, d.log).Error().Err(err).Str("command", command).Msg("command failed")
	return d.tr.T("generic_error")
}

// parseCommand splits "/cmd@bot rest" into ("/cmd", "rest"). Text that does
// not start with a slash yields an empty command.
func parseCommand(text string) (string, string) {
	if !strings.HasPrefix(text, "/") {
		return "", text
	}
	head, rest := text, ""
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		head, rest = text[:i], strings.TrimSpace(text[i+1:])
	}
	if at := strings.IndexByte(head, '@'); at > 0 {
		head = head[:at]
	}
	return strings.ToLower(head), rest
}

func cmdLabel(cmd string) string {
	if cmd == "" {
		return "text"
	}
	return strings.TrimPrefix(cmd, "/")
}
