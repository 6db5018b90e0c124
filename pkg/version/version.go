package version

// Version is the current application version. It is a var so release builds
// can stamp it:
//
//	go build -ldflags "-X github.com/vanderheijden86/supplyviz/pkg/version.Version=v0.4.0"
var Version = "v0.3.0"
