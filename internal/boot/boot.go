// Package boot loads server state from disk on startup: it replays the GNS
// journal and every per-model batch journal into a fresh in-memory GNS, then
// reopens each journal file for further appends (spec §4.6, §6 file layout).
package boot

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/skytable/skytable-sub005/pkg/dispatcher"
	"github.com/skytable/skytable-sub005/pkg/gns"
	"github.com/skytable/skytable-sub005/pkg/journal"
	"github.com/skytable/skytable-sub005/pkg/journal/adapter"
	"github.com/skytable/skytable-sub005/pkg/logging"
	"github.com/skytable/skytable-sub005/pkg/schema"
)

const journalVersion = 1

// Result is what Boot hands back to the caller: a populated GNS and a
// dispatcher wired to every journal the replay opened (or that a later
// CREATE MODEL opens on the fly).
type Result struct {
	GNS        *gns.GNS
	Dispatcher *dispatcher.Dispatcher
	GNSWriter  *journal.Writer
}

func gnsPath(dataDir string) string { return filepath.Join(dataDir, "gns.db-tlog") }

func modelDir(dataDir string, spaceUUID, modelUUID uuid.UUID) string {
	return filepath.Join(dataDir, "spaces", spaceUUID.String(), "models", modelUUID.String())
}

func modelPath(dataDir string, spaceUUID, modelUUID uuid.UUID) string {
	return filepath.Join(modelDir(dataDir, spaceUUID, modelUUID), "data.db-btlog")
}

// Boot opens or creates the data directory's journals and replays them into
// a fresh GNS. A directory with no gns.db-tlog yet is treated as a brand new
// installation.
func Boot(dataDir string) (*Result, error) {
	log := logging.WithComponent("boot")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	g := gns.New()
	path := gnsPath(dataDir)
	gnsWriter, err := openOrCreateGNSJournal(g, path)
	if err != nil {
		return nil, err
	}

	d := dispatcher.New(g, gnsWriter)
	d.OpenModelJournal = func(sp *schema.Space, m *schema.Model) (dispatcher.BatchJournal, error) {
		path := modelPath(dataDir, sp.UUID, m.UUID)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		header := journal.Header{Version: journalVersion, Kind: journal.KindBatch, CreatedAt: uint64(time.Now().Unix())}
		return journal.CreateWriter(path, header, nil)
	}

	modelCount := 0
	guard := g.PinSpaces()
	g.IterateSpaces(guard, func(_ string, sp *schema.Space) bool {
		modelsGuard := sp.PinModels()
		sp.IterateModels(modelsGuard, func(_ string, m *schema.Model) bool {
			bw, err := openOrCreateBatchJournal(m, modelPath(dataDir, sp.UUID, m.UUID))
			if err != nil {
				log.Error().Err(err).Str("space", sp.Name).Str("model", m.Name).Msg("failed to open batch journal")
				return true
			}
			d.RegisterBatchJournal(sp.Name, m.Name, bw)
			modelCount++
			return true
		})
		modelsGuard.Unpin()
		return true
	})
	guard.Unpin()

	log.Info().Str("data_dir", dataDir).Int("models", modelCount).Msg("boot complete")
	return &Result{GNS: g, Dispatcher: d, GNSWriter: gnsWriter}, nil
}

func openOrCreateGNSJournal(g *gns.GNS, path string) (*journal.Writer, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		header := journal.Header{Version: journalVersion, Kind: journal.KindGNS, CreatedAt: uint64(time.Now().Unix())}
		return journal.CreateWriter(path, header, nil)
	}
	result, err := journal.Recover(path, journal.KindGNS, nil)
	if err != nil {
		return nil, err
	}
	for _, frame := range result.Frames {
		if frame.Kind.IsDriverEvent() {
			continue
		}
		if err := adapter.ApplyGNS(g, frame.Kind, frame.Payload); err != nil {
			return nil, err
		}
	}
	return journal.ReopenWriter(path, result.TruncateToEnd, result.NextEventID, nil)
}

func openOrCreateBatchJournal(m *schema.Model, path string) (*journal.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		header := journal.Header{Version: journalVersion, Kind: journal.KindBatch, CreatedAt: uint64(time.Now().Unix())}
		return journal.CreateWriter(path, header, nil)
	}
	result, err := journal.Recover(path, journal.KindBatch, nil)
	if err != nil {
		return nil, err
	}
	for _, frame := range result.Frames {
		if frame.Kind.IsDriverEvent() {
			continue
		}
		if err := adapter.ApplyBatch(m, frame.Kind, frame.Payload, m.CurrentVersion()); err != nil {
			return nil, err
		}
	}
	return journal.ReopenWriter(path, result.TruncateToEnd, result.NextEventID, nil)
}

// RepairReport summarizes what RepairDataDir did to one journal file.
type RepairReport struct {
	Path     string
	Repaired bool
	Frames   int
}

// RepairDataDir implements the repair mode spec §4.6/§4.7 requires before a
// data directory with journal integrity errors can boot again: it runs
// journal.Repair (rather than the strict journal.Recover) against the GNS
// journal and every per-model batch journal, truncating each file on disk to
// the last good frame boundary. It never replays events into a GNS — a
// caller should follow a successful RepairDataDir with a normal Boot.
func RepairDataDir(dataDir string) ([]RepairReport, error) {
	log := logging.WithComponent("boot")
	var reports []RepairReport

	path := gnsPath(dataDir)
	if _, err := os.Stat(path); err == nil {
		r, err := repairJournalFile(path, journal.KindGNS)
		if err != nil {
			return reports, err
		}
		reports = append(reports, r)
	}

	spacesDir := filepath.Join(dataDir, "spaces")
	spaceEntries, err := os.ReadDir(spacesDir)
	if os.IsNotExist(err) {
		return reports, nil
	}
	if err != nil {
		return reports, err
	}
	for _, spaceEntry := range spaceEntries {
		modelsDir := filepath.Join(spacesDir, spaceEntry.Name(), "models")
		modelEntries, err := os.ReadDir(modelsDir)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return reports, err
		}
		for _, modelEntry := range modelEntries {
			path := filepath.Join(modelsDir, modelEntry.Name(), "data.db-btlog")
			if _, err := os.Stat(path); err != nil {
				continue
			}
			r, err := repairJournalFile(path, journal.KindBatch)
			if err != nil {
				return reports, err
			}
			reports = append(reports, r)
		}
	}

	for _, r := range reports {
		if r.Repaired {
			log.Warn().Str("path", r.Path).Int("frames_kept", r.Frames).Msg("journal repaired: corrupt tail discarded")
		}
	}
	return reports, nil
}

func repairJournalFile(path string, kind journal.FileKind) (RepairReport, error) {
	res, err := journal.Repair(path, kind, nil)
	if err != nil {
		return RepairReport{}, err
	}
	if res.Repaired {
		if err := os.Truncate(path, res.TruncateToEnd); err != nil {
			return RepairReport{}, err
		}
	}
	return RepairReport{Path: path, Repaired: res.Repaired, Frames: len(res.Frames)}, nil
}

// Shutdown closes every open journal writer. Per-model journals close first
// so a crash mid-shutdown still leaves the GNS journal, the root of
// recoverable state, durable last.
func Shutdown(r *Result) error {
	for _, bj := range r.Dispatcher.AllBatchJournals() {
		closer, ok := bj.(interface{ Close() error })
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			return err
		}
	}
	return r.GNSWriter.Close()
}
