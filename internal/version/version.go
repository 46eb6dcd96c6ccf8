// 包 version：构建信息，由 -ldflags "-X recycle-right/internal/version.Commit=<sha>" 注入
package version

// Commit 构建提交号
var Commit = "dev"
