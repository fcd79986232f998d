// Package pipeline sequences one webhook invocation end to end: authenticate,
// settle, discover the newest CSV, download, parse, transform, archive the
// source and publish the invoice. The flow is strictly linear; every step
// depends on the previous one and nothing calls backward.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/nordstock/invoicepipe/internal/pkg/csvparse"
	"github.com/nordstock/invoicepipe/internal/pkg/cursor"
	"github.com/nordstock/invoicepipe/internal/pkg/filestore"
	"github.com/nordstock/invoicepipe/internal/pkg/invoice"
	"github.com/nordstock/invoicepipe/internal/pkg/product"
	"github.com/nordstock/invoicepipe/internal/pkg/signature"
)

// ErrUnauthorized is returned when the webhook signature does not match.
// Callers map it to a 403; no store operation has run at that point.
var ErrUnauthorized = errors.New("pipeline: invalid webhook signature")

// Event is one webhook delivery: the raw body exactly as received (the
// signature is computed over these bytes) and the signature header value.
type Event struct {
	Body      []byte
	Signature string
}

// Outcome classifies a successful run.
type Outcome string

const (
	// OutcomeProcessed means a CSV was consumed (invoice generated unless
	// the file held no product rows).
	OutcomeProcessed Outcome = "processed"
	// OutcomeNoFile means the input folder held no CSV. A success, not an
	// error: the notification may have been about something else.
	OutcomeNoFile Outcome = "no_file"
	// OutcomeAlreadyClaimed means a concurrent invocation archived the file
	// first. The move is the serialization point, so this run stops without
	// generating a duplicate invoice.
	OutcomeAlreadyClaimed Outcome = "already_claimed"
)

// Result summarizes a successful run for the webhook response.
type Result struct {
	Outcome  Outcome
	File     string
	Products int
	Invoice  string
}

// Message renders the short human-readable status returned to the caller.
func (r *Result) Message() string {
	switch r.Outcome {
	case OutcomeNoFile:
		return "nothing to process"
	case OutcomeAlreadyClaimed:
		return fmt.Sprintf("%s already claimed by a concurrent run", r.File)
	default:
		if r.Invoice == "" {
			return fmt.Sprintf("processed %s (no product rows)", r.File)
		}
		return fmt.Sprintf("processed %s into %s (%d products)", r.File, r.Invoice, r.Products)
	}
}

// Config carries the pipeline's folder layout and timing knobs.
type Config struct {
	WebhookSecret   string
	InputFolder     string
	ProcessedFolder string
	TemplateFolder  string
	SettleDelay     time.Duration
	HTTPTimeout     time.Duration
}

// Pipeline orchestrates one webhook invocation at a time. It holds no
// per-invocation state, so concurrent runs are safe; the archival move
// decides which of two racing runs consumes a file.
type Pipeline struct {
	store     filestore.Store
	cursors   cursor.Store
	assembler *invoice.Assembler
	cfg       Config

	httpClient *http.Client
	now        func() time.Time
	sleep      func(time.Duration)
}

// New wires a Pipeline from its collaborators.
func New(store filestore.Store, cursors cursor.Store, assembler *invoice.Assembler, cfg Config) *Pipeline {
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Pipeline{
		store:      store,
		cursors:    cursors,
		assembler:  assembler,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
		sleep:      time.Sleep,
	}
}

// Run executes the pipeline for one webhook event. It returns ErrUnauthorized
// before touching the store when the signature is invalid; any later failure
// surfaces as a single generic processing error with step detail only logged.
func (p *Pipeline) Run(ctx context.Context, evt Event) (*Result, error) {
	if !signature.Verify(evt.Body, evt.Signature, p.cfg.WebhookSecret) {
		return nil, ErrUnauthorized
	}

	runID := uuid.New().String()[:8]
	account := accountID(evt.Body)
	log.Infof("[Pipeline] run %s: webhook authenticated (account %s)", runID, account)

	// The change notification can outrun the write becoming visible to
	// listing calls. The delay narrows that window, it does not close it.
	p.sleep(p.cfg.SettleDelay)

	entries, err := p.store.ListFolder(ctx, p.cfg.InputFolder)
	if err != nil {
		return nil, fmt.Errorf("failed to list input folder: %w", err)
	}

	selected := SelectNewestCSV(entries)
	if selected == nil {
		log.Infof("[Pipeline] run %s: no csv in %s", runID, p.cfg.InputFolder)
		return &Result{Outcome: OutcomeNoFile}, nil
	}
	log.Infof("[Pipeline] run %s: selected %s (modified %s)", runID, selected.Path, selected.LastModified.Format(time.RFC3339))

	raw, err := p.fetch(ctx, selected.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", selected.Name, err)
	}

	rows, err := csvparse.Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", selected.Name, err)
	}
	products := product.FromCSV(selected.Name, rows)

	// Archive before invoicing: the move doubles as the claim on the file.
	archivePath := fmt.Sprintf("%s/%s_%s",
		strings.TrimSuffix(p.cfg.ProcessedFolder, "/"),
		selected.Name,
		p.now().UTC().Format("20060102T150405Z"),
	)
	if err := p.store.MoveFile(ctx, selected.Path, archivePath); err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			log.Infof("[Pipeline] run %s: %s was already claimed", runID, selected.Name)
			return &Result{Outcome: OutcomeAlreadyClaimed, File: selected.Name}, nil
		}
		return nil, fmt.Errorf("failed to archive %s: %w", selected.Name, err)
	}

	// Cursor updates are advisory; a failure must not undo a processed file.
	if err := p.cursors.Set(ctx, account, selected.Path); err != nil {
		log.Warnf("[Pipeline] run %s: cursor update failed: %v", runID, err)
	}

	if len(products) == 0 {
		log.Warnf("[Pipeline] run %s: %s held no product rows, archived without invoice", runID, selected.Name)
		return &Result{Outcome: OutcomeProcessed, File: selected.Name}, nil
	}

	templateData, err := p.fetchTemplate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice template: %w", err)
	}

	invoiceName, err := p.assembler.Generate(ctx, templateData, products)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice for %s: %w", selected.Name, err)
	}

	log.Infof("[Pipeline] run %s: done, %s -> %s", runID, selected.Name, invoiceName)
	return &Result{
		Outcome:  OutcomeProcessed,
		File:     selected.Name,
		Products: len(products),
		Invoice:  invoiceName,
	}, nil
}

// SelectNewestCSV picks the file entry with the newest LastModified among
// entries with a case-insensitive .csv suffix. Folders and other files are
// ignored. Ties keep the earlier list position. Returns nil when nothing
// matches.
func SelectNewestCSV(entries []filestore.Entry) *filestore.Entry {
	var newest *filestore.Entry
	for i := range entries {
		e := &entries[i]
		if e.IsFolder || !strings.HasSuffix(strings.ToLower(e.Name), ".csv") {
			continue
		}
		if newest == nil || e.LastModified.After(newest.LastModified) {
			newest = e
		}
	}
	return newest
}

// fetch resolves a short-lived download link for path and retrieves the
// content through the HTTP client, whose timeout bounds the call.
func (p *Pipeline) fetch(ctx context.Context, path string) ([]byte, error) {
	link, err := p.store.GetDownloadLink(ctx, path)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download link returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// fetchTemplate downloads the first .xlsx file from the template folder.
func (p *Pipeline) fetchTemplate(ctx context.Context) ([]byte, error) {
	entries, err := p.store.ListFolder(ctx, p.cfg.TemplateFolder)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if e.IsFolder || !strings.HasSuffix(strings.ToLower(e.Name), ".xlsx") {
			continue
		}
		return p.fetch(ctx, e.Path)
	}

	return nil, fmt.Errorf("no .xlsx template in %s", p.cfg.TemplateFolder)
}

// notification is the subset of the provider webhook payload the pipeline
// reads. The entry list is never trusted; files are re-discovered by listing.
type notification struct {
	ListFolder struct {
		Accounts []string `json:"accounts"`
	} `json:"list_folder"`
	Delta struct {
		Users []int64 `json:"users"`
	} `json:"delta"`
}

// accountID extracts an account identifier for cursor bookkeeping. Payload
// shapes differ across provider webhook formats, so both known variants are
// tried before falling back to a fixed id.
func accountID(body []byte) string {
	var n notification
	if err := json.Unmarshal(body, &n); err == nil {
		if len(n.ListFolder.Accounts) > 0 {
			return n.ListFolder.Accounts[0]
		}
		if len(n.Delta.Users) > 0 {
			return fmt.Sprintf("uid:%d", n.Delta.Users[0])
		}
	}
	return "default"
}
