package jobs

import (
	"os"
	"path/filepath"
	"time"

	"github.com/aicert/cert_platform/logger"
	"github.com/aicert/cert_platform/models"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
)

// OrphanCleaner removes uploads that no RawDocument points at. They are left
// behind when the process dies between saving a file and recording it.
type OrphanCleaner struct {
	db     *gorm.DB
	dir    string
	maxAge time.Duration
	now    func() time.Time
	log    logger.Logger
}

func NewOrphanCleaner(db *gorm.DB, dir string, maxAge time.Duration, log logger.Logger) *OrphanCleaner {
	return &OrphanCleaner{db: db, dir: dir, maxAge: maxAge, now: time.Now, log: log.With("cleanup")}
}

// Run returns the number of files removed.
func (j *OrphanCleaner) Run() int {
	entries, err := os.ReadDir(j.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			j.log.Error("Error reading upload directory %s: %v", j.dir, err)
		}
		return 0
	}

	var paths []string
	if err := j.db.Model(&models.RawDocument{}).Pluck("file_path", &paths).Error; err != nil {
		j.log.Error("Error loading document paths: %v", err)
		return 0
	}
	referenced := make(map[string]bool, len(paths))
	for _, p := range paths {
		referenced[filepath.Clean(p)] = true
		if abs, err := filepath.Abs(p); err == nil {
			referenced[abs] = true
		}
	}

	cutoff := j.now().Add(-j.maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.dir, e.Name())
		abs, _ := filepath.Abs(path)
		if referenced[filepath.Clean(path)] || referenced[abs] {
			continue
		}
		if err := os.Remove(path); err != nil {
			j.log.Warn("Could not remove orphaned upload %s: %v", path, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		j.log.Info("Removed %d orphaned uploads from %s", removed, j.dir)
	}
	return removed
}

// Schedule registers the cleaner to run at the top of every hour.
func (j *OrphanCleaner) Schedule(c *cron.Cron) error {
	_, err := c.AddFunc("@hourly", func() { j.Run() })
	return err
}
