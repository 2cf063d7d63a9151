package config

// 构建时通过 -ldflags 注入
var (
	Version    = "dev"
	CommitHash = "n/a"
)

// IsProduction 是否为正式构建
func IsProduction() bool {
	return CommitHash != "n/a"
}
