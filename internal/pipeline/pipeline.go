package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tunebot/internal/formatter"
	"github.com/desertthunder/tunebot/internal/models"
	"github.com/desertthunder/tunebot/internal/services"
	"github.com/desertthunder/tunebot/internal/session"
	"github.com/desertthunder/tunebot/internal/shared"
	"github.com/samber/lo"
)

// User-visible replies.
const (
	MsgTooShort         = "Query too short, please send at least 2 characters."
	MsgBusy             = "Still working on your previous request."
	MsgProcessingLink   = "Processing link..."
	MsgResolveFailed    = "Could not read the link, searching by text instead."
	MsgSearching        = "Searching..."
	MsgNothingFound     = "Nothing found, try another title."
	MsgChoose           = "Choose a track:"
	MsgInvalidSelection = "Invalid selection, please search again."
	MsgDownloading      = "Downloading %s..."
	MsgDownloadFailed   = "Could not download (possibly too large)."
	MsgFileNotFound     = "File not found."
	MsgDeliveryFailed   = "Could not send the file."
	MsgUnhandled        = "An error occurred, please restart."
)

const (
	opQuery     = "query"
	opSelection = "selection"

	// MaxTagLength bounds the title and performer sent with audio.
	MaxTagLength = 64
)

// Choice is one entry of a selection surface.
type Choice struct {
	Label   string
	Payload string
}

// Audio is a file ready for delivery.
type Audio struct {
	Path      string
	Title     string
	Performer string
	Duration  int
	Size      int64
}

// Channel is the conversation with one user.
type Channel interface {
	// Notify sends a status or error message.
	Notify(ctx context.Context, text string) error
	// PresentChoices shows an index-ordered selection surface.
	PresentChoices(ctx context.Context, prompt string, choices []Choice) error
	// SendAudio transmits a fetched file.
	SendAudio(ctx context.Context, audio Audio) error
}

// Recorder receives request metrics.
type Recorder interface {
	Request(op string)
	Outcome(op, kind string)
	Stage(stage string, d time.Duration)
	Delivered(bytes int64)
}

type nopRecorder struct{}

func (nopRecorder) Request(string)              {}
func (nopRecorder) Outcome(string, string)      {}
func (nopRecorder) Stage(string, time.Duration) {}
func (nopRecorder) Delivered(int64)             {}

// Options configures a [Pipeline]. Zero values fall back to defaults.
type Options struct {
	LinkDomains    []string
	ResultsLimit   int
	LabelWidth     int
	MaxFileSize    int64
	ResolveTimeout time.Duration
	SearchTimeout  time.Duration
	FetchTimeout   time.Duration
	DeliverTimeout time.Duration

	Logger   *log.Logger
	Recorder Recorder
	// Updates receives state transitions; may be nil.
	Updates chan<- Update
}

func (o Options) withDefaults() Options {
	if len(o.LinkDomains) == 0 {
		o.LinkDomains = []string{"spotify.com"}
	}
	if o.ResultsLimit <= 0 {
		o.ResultsLimit = 5
	}
	if o.LabelWidth <= 0 {
		o.LabelWidth = 40
	}
	if o.ResolveTimeout <= 0 {
		o.ResolveTimeout = 15 * time.Second
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = 30 * time.Second
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 5 * time.Minute
	}
	if o.DeliverTimeout <= 0 {
		o.DeliverTimeout = 2 * time.Minute
	}
	if o.Logger == nil {
		o.Logger = shared.NewLogger(nil)
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	return o
}

// Pipeline sequences resolve, search, select, fetch and deliver for each user.
//
// Safe for concurrent use; interactions of one user are serialized by the session store's in-flight guard.
type Pipeline struct {
	resolver services.Resolver
	searcher services.Searcher
	fetcher  services.Fetcher
	sessions *session.Store
	opts     Options
}

// New creates a Pipeline. A nil resolver disables link resolution.
func New(resolver services.Resolver, searcher services.Searcher, fetcher services.Fetcher, sessions *session.Store, opts Options) *Pipeline {
	if resolver == nil {
		resolver = services.Disabled
	}
	return &Pipeline{
		resolver: resolver,
		searcher: searcher,
		fetcher:  fetcher,
		sessions: sessions,
		opts:     opts.withDefaults(),
	}
}

// sendUpdate sends an update through the observer channel without blocking.
func (p *Pipeline) sendUpdate(update Update) {
	if p.opts.Updates == nil {
		return
	}
	select {
	case p.opts.Updates <- update:
	default:
	}
}

// HandleQuery runs an inbound text message up to the selection surface.
//
// The returned error is nil or an [*Error]. A reply is sent on every path.
func (p *Pipeline) HandleQuery(ctx context.Context, user int64, text string, ch Channel) (err error) {
	logger := shared.WithLogger(p.opts.Logger, "op", opQuery, "user", user, "request", shared.GenerateID())
	p.opts.Recorder.Request(opQuery)

	if !p.sessions.Acquire(user) {
		return p.fail(ctx, logger, ch, user, &Error{Kind: InputRejected, Op: opQuery, Err: ErrBusy}, MsgBusy)
	}
	defer p.sessions.Release(user)
	defer p.finish(ctx, logger, ch, user, opQuery, &err)

	q := models.Query(text)
	p.sendUpdate(classifyingUpdate(user, q.Text()))
	if !q.Valid() {
		return p.fail(ctx, logger, ch, user, &Error{Kind: InputRejected, Op: opQuery, Err: ErrTooShort}, MsgTooShort)
	}

	search := q.Text()
	if q.Classify(p.opts.LinkDomains) == models.StreamingServiceLink {
		p.sendUpdate(resolvingUpdate(user, search))
		p.notify(ctx, logger, ch, MsgProcessingLink)

		resolved, rerr := p.resolve(ctx, search)
		if rerr != nil {
			logger.Warn("link resolution failed, searching by text", "kind", ResolutionFailed, "err", rerr)
			p.opts.Recorder.Outcome("resolve", ResolutionFailed.String())
			p.notify(ctx, logger, ch, MsgResolveFailed)
		} else {
			logger.Debug("link resolved", "search", resolved)
			search = resolved
		}
	}

	p.sendUpdate(searchingUpdate(user, search))
	p.notify(ctx, logger, ch, MsgSearching)

	list, serr := p.search(ctx, search)
	if serr != nil {
		return p.fail(ctx, logger, ch, user, &Error{Kind: SearchFailed, Op: opQuery, Err: serr}, MsgNothingFound)
	}
	if len(list) == 0 {
		return p.fail(ctx, logger, ch, user, &Error{Kind: SearchFailed, Op: opQuery, Err: ErrNothingFound}, MsgNothingFound)
	}
	list = list.Cap(p.opts.ResultsLimit)

	token := p.sessions.Put(user, list)
	choices := lo.Map(list, func(c models.Candidate, i int) Choice {
		return Choice{Label: formatter.Label(c, p.opts.LabelWidth), Payload: token + ":" + strconv.Itoa(i)}
	})

	p.sendUpdate(awaitingUpdate(user, len(choices)))
	if perr := ch.PresentChoices(ctx, MsgChoose, choices); perr != nil {
		return p.fail(ctx, logger, ch, user, &Error{Kind: Unhandled, Op: opQuery, Err: perr}, MsgUnhandled)
	}

	logger.Info("presented candidates", "search", search, "count", len(choices))
	return nil
}

// HandleSelection fetches and delivers the candidate named by payload ("<token>:<index>" or "<index>").
//
// The returned error is nil or an [*Error]. A reply is sent on every path.
func (p *Pipeline) HandleSelection(ctx context.Context, user int64, payload string, ch Channel) (err error) {
	logger := shared.WithLogger(p.opts.Logger, "op", opSelection, "user", user, "request", shared.GenerateID())
	p.opts.Recorder.Request(opSelection)

	if !p.sessions.Acquire(user) {
		return p.fail(ctx, logger, ch, user, &Error{Kind: InputRejected, Op: opSelection, Err: ErrBusy}, MsgBusy)
	}
	defer p.sessions.Release(user)
	defer p.finish(ctx, logger, ch, user, opSelection, &err)

	candidate, lerr := p.selection(user, payload)
	if lerr != nil {
		return p.fail(ctx, logger, ch, user, &Error{Kind: InputRejected, Op: opSelection, Err: lerr}, MsgInvalidSelection)
	}

	title := formatter.Clip(firstNonEmpty(candidate.Title), MaxTagLength)
	p.sendUpdate(fetchingUpdate(user, title))
	p.notify(ctx, logger, ch, fmt.Sprintf(MsgDownloading, title))

	result, ferr := p.fetch(ctx, candidate.Locator)
	if result != nil && result.Path != "" {
		defer p.discard(logger, result.Path)
	}
	switch {
	case errors.Is(ferr, services.ErrNoOutput):
		return p.fail(ctx, logger, ch, user, &Error{Kind: FetchFailed, Op: opSelection, Err: ferr}, MsgFileNotFound)
	case ferr != nil:
		return p.fail(ctx, logger, ch, user, &Error{Kind: FetchFailed, Op: opSelection, Err: ferr}, MsgDownloadFailed)
	case result == nil || result.Path == "":
		return p.fail(ctx, logger, ch, user, &Error{Kind: FetchFailed, Op: opSelection, Err: ErrFileMissing}, MsgFileNotFound)
	}

	info, serr := os.Stat(result.Path)
	if serr != nil {
		return p.fail(ctx, logger, ch, user, &Error{Kind: FetchFailed, Op: opSelection, Err: fmt.Errorf("%w: %w", ErrFileMissing, serr)}, MsgFileNotFound)
	}
	if p.opts.MaxFileSize > 0 && info.Size() > p.opts.MaxFileSize {
		err := fmt.Errorf("%w: %s", services.ErrTooLarge, formatter.Size(info.Size()))
		return p.fail(ctx, logger, ch, user, &Error{Kind: FetchFailed, Op: opSelection, Err: err}, MsgDownloadFailed)
	}

	audio := Audio{
		Path:      result.Path,
		Title:     tagValue(result.Title, candidate.Title),
		Performer: tagValue(result.Artist, candidate.Uploader),
		Duration:  formatter.ClampDuration(firstPositive(result.Duration, candidate.Duration)),
		Size:      info.Size(),
	}

	p.sendUpdate(deliveringUpdate(user, audio.Path))
	if derr := p.deliver(ctx, ch, audio); derr != nil {
		return p.fail(ctx, logger, ch, user, &Error{Kind: DeliveryFailed, Op: opSelection, Err: derr}, MsgDeliveryFailed)
	}

	p.opts.Recorder.Delivered(audio.Size)
	logger.Info("delivered", "title", audio.Title, "size", formatter.Size(audio.Size))
	return nil
}

// selection parses payload and looks the candidate up in the user's current list.
func (p *Pipeline) selection(user int64, payload string) (models.Candidate, error) {
	token, index := "", strings.TrimSpace(payload)
	if i := strings.LastIndex(index, ":"); i >= 0 {
		token, index = index[:i], index[i+1:]
	}

	n, err := strconv.Atoi(index)
	if err != nil || !digits(index) {
		return models.Candidate{}, fmt.Errorf("%w: index %q", ErrInvalidSelection, index)
	}

	list, err := p.sessions.Lookup(user, token)
	if err != nil {
		return models.Candidate{}, fmt.Errorf("%w: %w", ErrInvalidSelection, err)
	}

	c, ok := list.At(n)
	if !ok {
		return models.Candidate{}, fmt.Errorf("%w: index %d out of range [0, %d)", ErrInvalidSelection, n, len(list))
	}
	return c, nil
}

// digits reports whether s is a non-empty run of ASCII digits, so signed indices are rejected.
func digits(s string) bool {
	return s != "" && strings.Trim(s, "0123456789") == ""
}

// tagValue picks the first non-empty value and makes it safe to send as an audio tag.
func tagValue(values ...string) string {
	return formatter.Clip(formatter.Sanitize(firstNonEmpty(values...)), MaxTagLength)
}

// resolve calls the resolver under its timeout. Panics are recovered as errors so a faulty
// resolver still falls back to a text search.
func (p *Pipeline) resolve(ctx context.Context, link string) (query string, err error) {
	defer p.stage("resolve", time.Now())
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("resolver panic: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, p.opts.ResolveTimeout)
	defer cancel()

	query, err = p.resolver.Resolve(ctx, link)
	if err == nil && strings.TrimSpace(query) == "" {
		err = services.ErrUnresolvable
	}
	return strings.TrimSpace(query), err
}

func (p *Pipeline) search(ctx context.Context, query string) (models.CandidateList, error) {
	defer p.stage("search", time.Now())
	ctx, cancel := context.WithTimeout(ctx, p.opts.SearchTimeout)
	defer cancel()
	return p.searcher.Search(ctx, query, p.opts.ResultsLimit)
}

func (p *Pipeline) fetch(ctx context.Context, locator string) (*models.FetchResult, error) {
	defer p.stage("fetch", time.Now())
	ctx, cancel := context.WithTimeout(ctx, p.opts.FetchTimeout)
	defer cancel()
	return p.fetcher.Fetch(ctx, locator)
}

func (p *Pipeline) deliver(ctx context.Context, ch Channel, audio Audio) error {
	defer p.stage("deliver", time.Now())
	ctx, cancel := context.WithTimeout(ctx, p.opts.DeliverTimeout)
	defer cancel()
	return ch.SendAudio(ctx, audio)
}

func (p *Pipeline) stage(name string, start time.Time) {
	p.opts.Recorder.Stage(name, time.Since(start))
}

// notify sends a status message. Failures are logged and do not end the interaction.
func (p *Pipeline) notify(ctx context.Context, logger *log.Logger, ch Channel, text string) {
	if err := ch.Notify(ctx, text); err != nil {
		logger.Warn("failed to send status", "text", text, "err", err)
	}
}

// fail replies with msg, logs e once and returns it.
func (p *Pipeline) fail(ctx context.Context, logger *log.Logger, ch Channel, user int64, e *Error, msg string) error {
	switch e.Kind {
	case InputRejected:
		logger.Info("rejected", "kind", e.Kind, "err", e.Err)
	default:
		logger.Error("interaction failed", "kind", e.Kind, "err", e.Err)
	}
	p.sendUpdate(failedUpdate(user, e))
	p.notify(ctx, logger, ch, msg)
	p.opts.Recorder.Outcome(e.Op, e.Kind.String())
	return e
}

// finish converts a panic or an unclassified error into [Unhandled] and records successful outcomes.
func (p *Pipeline) finish(ctx context.Context, logger *log.Logger, ch Channel, user int64, op string, err *error) {
	if r := recover(); r != nil {
		*err = p.fail(ctx, logger, ch, user, &Error{Kind: Unhandled, Op: op, Err: fmt.Errorf("panic: %v", r)}, MsgUnhandled)
	} else if *err != nil {
		var pe *Error
		if !errors.As(*err, &pe) {
			*err = p.fail(ctx, logger, ch, user, &Error{Kind: Unhandled, Op: op, Err: *err}, MsgUnhandled)
		}
	} else {
		p.opts.Recorder.Outcome(op, OK.String())
	}
	p.sendUpdate(idleUpdate(user))
}

// discard removes a fetched file once its single delivery attempt is over.
func (p *Pipeline) discard(logger *log.Logger, path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to remove fetched file", "path", path, "err", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return "Unknown"
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
