package sentinel

import (
	"os"
	"path/filepath"

	"sitesentinel/internal/watcher"
	"sitesentinel/pkg/fileutil"
)

// StatFunc reports file information; os.Stat in production.
type StatFunc func(path string) (os.FileInfo, error)

// Plan is what a batch asks the sentinel to do.
type Plan struct {
	Reload   bool
	Scaffold []string
	Build    bool
	Ignored  int
}

// Classify decides, per event, whether it reloads the config, scaffolds an
// empty content file, or calls for a rebuild. A content file that no longer
// exists counts as a rebuild.
func Classify(batch watcher.Batch, configPath, extension string, stat StatFunc) Plan {
	var plan Plan
	for _, event := range batch {
		path := filepath.Clean(event.Path)

		if fileutil.SameFile(path, configPath) {
			plan.Reload = true
			continue
		}

		if filepath.Ext(path) != extension {
			plan.Ignored++
			continue
		}

		info, err := stat(path)
		switch {
		case err != nil:
			plan.Build = true
		case info.IsDir():
			plan.Ignored++
		case fileutil.IsEmptyRegular(info):
			plan.Scaffold = append(plan.Scaffold, path)
		default:
			plan.Build = true
		}
	}
	return plan
}
