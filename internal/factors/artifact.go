package factors

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"
)

// artifactV1 is the on-disk layout of a model snapshot: a gob blob holding
// the factor matrices row-major plus every field needed to rebuild the
// snapshot exactly. The format is versioned by the leading magic field.
type artifactV1 struct {
	Magic      string
	Version    string
	TrainedAt  time.Time
	Factors    int
	Epochs     int
	GlobalMean float64
	UserIDs    []string
	ItemIDs    []string
	UserBias   []float64
	ItemBias   []float64
	UserData   []float64
	ItemData   []float64
	ItemStats  []ItemStat
}

const artifactMagic = "cinerec-svd-v1"

// SaveArtifact persists a snapshot with replace-on-disk semantics: the
// blob is written to a temp file in the target directory and renamed over
// the destination. An existing artifact is first copied to a timestamped
// backup so a previous generation can always be restored.
func SaveArtifact(path string, m *Model) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		if err := backupArtifact(path); err != nil {
			return fmt.Errorf("backing up previous artifact: %w", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("creating temp artifact: %w", err)
	}
	defer os.Remove(tmp.Name())

	art := artifactV1{
		Magic:      artifactMagic,
		Version:    m.meta.Version,
		TrainedAt:  m.meta.TrainedAt,
		Factors:    m.meta.Factors,
		Epochs:     m.meta.Epochs,
		GlobalMean: m.globalMean,
		UserIDs:    m.userIDs,
		ItemIDs:    m.itemIDs,
		UserBias:   m.userBias,
		ItemBias:   m.itemBias,
		UserData:   m.userFactors.RawMatrix().Data,
		ItemData:   m.itemFactors.RawMatrix().Data,
		ItemStats:  m.itemStats,
	}

	if err := gob.NewEncoder(tmp).Encode(&art); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing artifact: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing artifact: %w", err)
	}
	return nil
}

// LoadArtifact reads a snapshot saved by SaveArtifact.
func LoadArtifact(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening artifact: %w", err)
	}
	defer f.Close()

	var art artifactV1
	if err := gob.NewDecoder(f).Decode(&art); err != nil {
		return nil, fmt.Errorf("decoding artifact: %w", err)
	}
	if art.Magic != artifactMagic {
		return nil, fmt.Errorf("unrecognized artifact format %q", art.Magic)
	}
	if art.Factors <= 0 {
		return nil, fmt.Errorf("artifact has invalid factor count %d", art.Factors)
	}
	if len(art.UserData) != len(art.UserIDs)*art.Factors ||
		len(art.ItemData) != len(art.ItemIDs)*art.Factors {
		return nil, fmt.Errorf("artifact factor matrices do not match index sizes")
	}

	userFactors := mat.NewDense(len(art.UserIDs), art.Factors, art.UserData)
	itemFactors := mat.NewDense(len(art.ItemIDs), art.Factors, art.ItemData)

	meta := Meta{
		Version:   art.Version,
		TrainedAt: art.TrainedAt,
		Factors:   art.Factors,
		Epochs:    art.Epochs,
	}
	return New(meta, art.GlobalMean, art.UserIDs, art.ItemIDs,
		userFactors, itemFactors, art.UserBias, art.ItemBias, art.ItemStats), nil
}

func backupArtifact(path string) error {
	ext := filepath.Ext(path)
	stamp := time.Now().Format("20060102_150405")
	backup := strings.TrimSuffix(path, ext) + "_backup_" + stamp + ext

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.Create(backup)
	if err != nil {
		return err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return err
	}
	return dst.Sync()
}
