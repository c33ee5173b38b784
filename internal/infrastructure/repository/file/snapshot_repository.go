package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	sonic "github.com/bytedance/sonic"
	"github.com/riskibarqy/fpl-livescore/internal/domain/snapshot"
	"github.com/valyala/bytebufferpool"
)

const (
	dataSuffix = ".json"
	metaSuffix = ".meta.json"
)

// SnapshotRepository keeps one {key}.json file holding {data, gameweek} and
// a sibling {key}.meta.json holding {timestamp, gw} per entry.
type SnapshotRepository struct {
	dir string
	// serializes writers so a data file and its metadata are replaced together
	mu sync.Mutex
}

func NewSnapshotRepository(dir string) (*SnapshotRepository, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	return &SnapshotRepository{dir: dir}, nil
}

func (r *SnapshotRepository) Get(_ context.Context, key string) (snapshot.Entry, bool, error) {
	name, err := fileName(key)
	if err != nil {
		return snapshot.Entry{}, false, err
	}

	rawMeta, err := os.ReadFile(filepath.Join(r.dir, name+metaSuffix))
	if errors.Is(err, fs.ErrNotExist) {
		return snapshot.Entry{}, false, nil
	}
	if err != nil {
		return snapshot.Entry{}, false, fmt.Errorf("read snapshot meta key=%s: %w", key, err)
	}
	rawData, err := os.ReadFile(filepath.Join(r.dir, name+dataSuffix))
	if errors.Is(err, fs.ErrNotExist) {
		return snapshot.Entry{}, false, nil
	}
	if err != nil {
		return snapshot.Entry{}, false, fmt.Errorf("read snapshot data key=%s: %w", key, err)
	}

	var meta snapshot.Metadata
	if err := sonic.Unmarshal(rawMeta, &meta); err != nil {
		return snapshot.Entry{}, false, fmt.Errorf("decode snapshot meta key=%s: %w", key, err)
	}
	var env snapshot.Envelope
	if err := sonic.Unmarshal(rawData, &env); err != nil {
		return snapshot.Entry{}, false, fmt.Errorf("decode snapshot data key=%s: %w", key, err)
	}

	return snapshot.Assemble(key, env, meta), true, nil
}

func (r *SnapshotRepository) Put(_ context.Context, entry snapshot.Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	name, err := fileName(entry.Key)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.writeJSON(name+dataSuffix, snapshot.EnvelopeOf(entry)); err != nil {
		return fmt.Errorf("write snapshot data key=%s: %w", entry.Key, err)
	}
	if err := r.writeJSON(name+metaSuffix, snapshot.MetadataOf(entry)); err != nil {
		return fmt.Errorf("write snapshot meta key=%s: %w", entry.Key, err)
	}
	return nil
}

func (r *SnapshotRepository) Delete(_ context.Context, key string) error {
	name, err := fileName(key)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remove(name)
}

func (r *SnapshotRepository) PurgeBefore(_ context.Context, before int) (int, error) {
	metaFiles, err := filepath.Glob(filepath.Join(r.dir, "*"+metaSuffix))
	if err != nil {
		return 0, fmt.Errorf("list snapshot meta files: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for _, path := range metaFiles {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var meta snapshot.Metadata
		if err := sonic.Unmarshal(raw, &meta); err != nil {
			continue
		}
		if meta.Gameweek <= 0 || meta.Gameweek >= before {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(path), metaSuffix)
		if err := r.remove(name); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (r *SnapshotRepository) remove(name string) error {
	for _, suffix := range []string{metaSuffix, dataSuffix} {
		err := os.Remove(filepath.Join(r.dir, name+suffix))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove snapshot %s: %w", name+suffix, err)
		}
	}
	return nil
}

// writeJSON encodes into a pooled buffer and renames a temp file into place
// so readers never see a partial payload.
func (r *SnapshotRepository) writeJSON(name string, v any) error {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if err := sonic.ConfigDefault.NewEncoder(buf).Encode(v); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(r.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.B); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, filepath.Join(r.dir, name))
}

func fileName(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("snapshot key is required")
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid snapshot key %q", key)
	}
	return key, nil
}
