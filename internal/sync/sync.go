package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gerunddev/wikibridge/internal/config"
	"github.com/gerunddev/wikibridge/internal/convert"
	"github.com/gerunddev/wikibridge/internal/logger"
	"github.com/gerunddev/wikibridge/internal/nodemap"
	"github.com/gerunddev/wikibridge/internal/pagefile"
	"github.com/gerunddev/wikibridge/internal/state"
	"github.com/gerunddev/wikibridge/internal/storage"
)

// Mode is how an edited page will be submitted
type Mode string

const (
	ModeUnchanged Mode = "unchanged"
	ModeTargeted  Mode = "targeted"
	ModeFull      Mode = "full"
)

// Syncer moves pages between their storage form and local page files
type Syncer struct {
	config *config.Config
	state  *state.State
	conv   *convert.Converter
	log    *logger.Logger
}

// NewSyncer creates a new syncer instance
func NewSyncer(cfg *config.Config, st *state.State, log *logger.Logger) *Syncer {
	if log == nil {
		log = logger.Discard()
	}
	return &Syncer{
		config: cfg,
		state:  st,
		conv:   convert.New(convert.WithImageWidth(cfg.ImageWidth)),
		log:    log,
	}
}

// RemotePage is a page as exported from the wiki
type RemotePage struct {
	ID      string
	Title   string
	Space   string
	Version int
	Storage string
}

// PullResult represents the result of a pull
type PullResult struct {
	PageID  string
	Path    string
	Version int
	Blocks  int
	Report  *convert.FidelityReport
}

// PushPlan describes what would be submitted for an edited page file
type PushPlan struct {
	PageID      string
	Path        string
	Mode        Mode
	Storage     string
	Changed     []string
	Missing     []string
	Reason      string
	NextVersion int
}

// DefaultPath is where a page is pulled to when no path is given
func (s *Syncer) DefaultPath(page *RemotePage) string {
	return filepath.Join(s.config.WorkspaceDir, page.Space, pagefile.FileName(page.Title, page.ID))
}

// SnapshotPath is where the pulled storage of a page is kept
func (s *Syncer) SnapshotPath(pageID string) string {
	return filepath.Join(s.config.SnapshotDir, pageID+".xml")
}

// Pull converts a page and writes it to path, or to its default path when
// path is empty. The storage is kept as a snapshot so a later push can
// update it in place.
func (s *Syncer) Pull(page *RemotePage, path string) (*PullResult, error) {
	if page.ID == "" {
		return nil, fmt.Errorf("page id cannot be empty")
	}
	if path == "" {
		path = s.DefaultPath(page)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	doc, err := storage.Parse(page.Storage)
	if err != nil {
		s.log.ConversionError(page.ID, err)
		return nil, fmt.Errorf("failed to parse page %s: %w", page.ID, err)
	}
	blocks, report, err := nodemap.Segment(s.conv, doc)
	if err != nil {
		s.log.ConversionError(page.ID, err)
		return nil, err
	}
	body := nodemap.RenderTagged(blocks)

	pf := &pagefile.Page{
		Meta: pagefile.Meta{
			PageID:      page.ID,
			Title:       page.Title,
			Space:       page.Space,
			Version:     page.Version,
			Unsupported: report.Strings(),
		},
		Body: body,
	}
	if err := pagefile.Write(abs, pf); err != nil {
		return nil, fmt.Errorf("failed to write page file: %w", err)
	}
	if err := s.writeSnapshot(page.ID, page.Storage); err != nil {
		return nil, err
	}

	if err := s.state.Record(page.ID, &state.PageState{
		Path:        abs,
		Title:       page.Title,
		Version:     page.Version,
		StorageHash: state.ComputeHash(page.Storage),
		TextHash:    state.ComputeHash(body),
		PulledAt:    time.Now(),
	}); err != nil {
		s.log.StateError("record", err)
		return nil, err
	}

	for _, f := range report.Features() {
		s.log.UnsupportedFeature(page.ID, string(f), report.Count(f))
	}
	s.log.PullCompleted(page.ID, abs, page.Version, len(blocks))

	return &PullResult{
		PageID:  page.ID,
		Path:    abs,
		Version: page.Version,
		Blocks:  len(blocks),
		Report:  report,
	}, nil
}

// Push reads an edited page file and plans its upload against the
// snapshot taken when it was pulled
func (s *Syncer) Push(path string) (*PushPlan, error) {
	page, err := pagefile.Read(path)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.readSnapshot(page.Meta.PageID)
	if err != nil {
		return nil, err
	}

	plan, err := s.Plan(page, snapshot)
	if err != nil {
		return nil, err
	}
	plan.Path = path

	s.log.PushPlanned(plan.PageID, string(plan.Mode), plan.Changed, plan.Missing)
	return plan, nil
}

// Plan decides how page should be submitted given the storage it was
// pulled from
func (s *Syncer) Plan(page *pagefile.Page, snapshot string) (*PushPlan, error) {
	plan := &PushPlan{
		PageID:      page.Meta.PageID,
		NextVersion: page.Meta.Version + 1,
	}

	doc, pulledBody, err := s.render(snapshot)
	if err != nil {
		return nil, err
	}

	if state.ComputeHash(page.Body) == state.ComputeHash(pulledBody) {
		plan.Mode = ModeUnchanged
		plan.Storage = snapshot
		plan.NextVersion = page.Meta.Version
		return plan, nil
	}

	edits, changed, reason := diffBlocks(nodemap.SplitTagged(pulledBody), nodemap.SplitTagged(page.Body), s.conv)
	plan.Changed = changed

	if reason == "" {
		rep, err := nodemap.ReplaceByIdentifiers(doc, edits)
		if err != nil {
			return nil, err
		}
		if len(rep.Missing) == 0 {
			plan.Mode = ModeTargeted
			plan.Storage = rep.Document
			return plan, nil
		}
		plan.Missing = rep.Missing
		reason = "identifiers not found: " + strings.Join(rep.Missing, ", ")
	}

	if !s.config.AllowFullFallback {
		return nil, fmt.Errorf("page %s cannot be updated in place (%s) and full updates are disabled", plan.PageID, reason)
	}
	s.log.FallbackToFull(plan.PageID, reason)
	plan.Mode = ModeFull
	plan.Reason = reason
	plan.Storage = s.conv.ToStorage(page.Body)
	return plan, nil
}

// diffBlocks compares pulled and edited blocks pairwise. It returns the
// storage for each changed identified block, or the reason the edit
// cannot be applied node by node.
func diffBlocks(pulled, edited []nodemap.MappedBlock, conv *convert.Converter) (map[string]string, []string, string) {
	if len(pulled) != len(edited) {
		return nil, nil, "blocks were added or removed"
	}

	edits := make(map[string]string)
	var changed []string
	for i := range pulled {
		if pulled[i].NodeID != edited[i].NodeID {
			return nil, nil, "node tags were changed or reordered"
		}
		if pulled[i].Text == edited[i].Text {
			continue
		}
		if edited[i].NodeID == "" {
			return nil, nil, "a block without an identifier was changed"
		}
		edits[edited[i].NodeID] = conv.ToStorage(edited[i].Text)
		changed = append(changed, edited[i].NodeID)
	}
	return edits, changed, ""
}

// Commit records a submitted plan: the planned storage becomes the new
// snapshot and the page file is stamped with the next version
func (s *Syncer) Commit(plan *PushPlan) error {
	if plan.Mode == ModeUnchanged {
		return nil
	}

	page, err := pagefile.Read(plan.Path)
	if err != nil {
		return err
	}
	page.Meta.Version = plan.NextVersion
	if err := pagefile.Write(plan.Path, page); err != nil {
		return fmt.Errorf("failed to write page file: %w", err)
	}
	if err := s.writeSnapshot(plan.PageID, plan.Storage); err != nil {
		return err
	}

	abs, err := filepath.Abs(plan.Path)
	if err != nil {
		return err
	}
	if err := s.state.Record(plan.PageID, &state.PageState{
		Path:        abs,
		Title:       page.Meta.Title,
		Version:     plan.NextVersion,
		StorageHash: state.ComputeHash(plan.Storage),
		TextHash:    state.ComputeHash(page.Body),
		PulledAt:    time.Now(),
	}); err != nil {
		s.log.StateError("record", err)
		return err
	}
	return nil
}

// Baseline returns the tagged text of a page as it was pulled
func (s *Syncer) Baseline(pageID string) (string, error) {
	snapshot, err := s.readSnapshot(pageID)
	if err != nil {
		return "", err
	}
	_, body, err := s.render(snapshot)
	return body, err
}

func (s *Syncer) render(snapshot string) (*storage.Document, string, error) {
	doc, err := storage.Parse(snapshot)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse snapshot: %w", err)
	}
	blocks, _, err := nodemap.Segment(s.conv, doc)
	if err != nil {
		return nil, "", err
	}
	return doc, nodemap.RenderTagged(blocks), nil
}

func (s *Syncer) readSnapshot(pageID string) (string, error) {
	data, err := os.ReadFile(s.SnapshotPath(pageID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("no snapshot for page %s, pull it first", pageID)
		}
		return "", fmt.Errorf("failed to read snapshot: %w", err)
	}
	return string(data), nil
}

func (s *Syncer) writeSnapshot(pageID, src string) error {
	if err := os.MkdirAll(s.config.SnapshotDir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.WriteFile(s.SnapshotPath(pageID), []byte(src), 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// PageStatus is the local state of one pulled page
type PageStatus struct {
	PageID   string
	Path     string
	Version  int
	Modified bool
	Err      error
}

// Status reports which pulled pages have local edits
func (s *Syncer) Status() []PageStatus {
	var out []PageStatus
	for _, id := range s.state.PageIDs() {
		p := s.state.Get(id)
		st := PageStatus{PageID: id, Path: p.Path, Version: p.Version}
		st.Modified, st.Err = s.state.HasChanged(id)
		out = append(out, st)
	}
	return out
}

// ScanDirectory scans a directory for files with given extension
func ScanDirectory(dir string, ext string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() && path != dir && strings.HasPrefix(info.Name(), ".") {
			return filepath.SkipDir
		}
		if !info.IsDir() && filepath.Ext(path) == ext {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return files, nil
}

// String returns a human-readable summary of the pull
func (r *PullResult) String() string {
	return fmt.Sprintf(
		"Pulled page %s (version %d): %d blocks, %d unsupported features",
		r.PageID,
		r.Version,
		r.Blocks,
		len(r.Report.Features()),
	)
}

// String returns a human-readable summary of the plan
func (p *PushPlan) String() string {
	switch p.Mode {
	case ModeUnchanged:
		return fmt.Sprintf("Page %s: no changes", p.PageID)
	case ModeTargeted:
		return fmt.Sprintf("Page %s: targeted update of %d nodes (version %d)", p.PageID, len(p.Changed), p.NextVersion)
	default:
		return fmt.Sprintf("Page %s: full update (version %d): %s", p.PageID, p.NextVersion, p.Reason)
	}
}
