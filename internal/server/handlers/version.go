package handlers

import (
	"encoding/json"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/fulmenhq/gofulmen/crucible"

	"github.com/folioai/chatgate/internal/observability"
)

// Build metadata, injected from main via SetVersionInfo.
var (
	AppName      = "chatgate"
	AppVersion   = "dev"
	AppCommit    = "unknown"
	AppBuildDate = "unknown"
)

// Modules whose versions are worth reporting next to the gofulmen stack.
const (
	chiModule   = "github.com/go-chi/chi/v5"
	redisModule = "github.com/redis/go-redis/v9"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// SetVersionInfo records the ldflags values from main.
func SetVersionInfo(version, commit, buildDate string) {
	AppVersion = version
	AppCommit = commit
	AppBuildDate = buildDate
}

// VersionResponse is the body of GET /version and the data behind the version CLI.
type VersionResponse struct {
	App          AppInfo     `json:"app"`
	Dependencies DepInfo     `json:"dependencies"`
	Runtime      RuntimeInfo `json:"runtime"`
}

type AppInfo struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Commit      string `json:"git_commit"`
	BuildDate   string `json:"build_date"`
	GoVersion   string `json:"go_version,omitempty"`
	Environment string `json:"environment"`
}

type DepInfo struct {
	Gofulmen string `json:"gofulmen"`
	Crucible string `json:"crucible"`
	Chi      string `json:"chi,omitempty"`
	GoRedis  string `json:"go_redis,omitempty"`
}

type RuntimeInfo struct {
	Platform      string `json:"platform"`
	NumCPU        int    `json:"num_cpu"`
	NumGoroutines int    `json:"num_goroutines"`
}

// CurrentVersion assembles the version payload. A binary built without
// ldflags falls back to the VCS revision stamped by the Go toolchain.
func CurrentVersion() VersionResponse {
	fulmen := crucible.GetVersion()
	resp := VersionResponse{
		App: AppInfo{
			Name:        AppName,
			Version:     AppVersion,
			Commit:      AppCommit,
			BuildDate:   AppBuildDate,
			GoVersion:   runtime.Version(),
			Environment: observability.Environment(),
		},
		Dependencies: DepInfo{
			Gofulmen: fulmen.Gofulmen,
			Crucible: fulmen.Crucible,
		},
		Runtime: RuntimeInfo{
			Platform:      runtime.GOOS + "/" + runtime.GOARCH,
			NumCPU:        runtime.NumCPU(),
			NumGoroutines: runtime.NumGoroutine(),
		},
	}

	info, ok := readBuildInfo()
	if !ok {
		return resp
	}
	for _, dep := range info.Deps {
		switch dep.Path {
		case chiModule:
			resp.Dependencies.Chi = dep.Version
		case redisModule:
			resp.Dependencies.GoRedis = dep.Version
		}
	}
	if resp.App.Commit == "unknown" {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && s.Value != "" {
				resp.App.Commit = s.Value
			}
		}
	}
	return resp
}

// VersionHandler serves GET /version.
func VersionHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(CurrentVersion())
}
