package common

// PackageName identifies the service in metrics and logs.
const PackageName = "share-recovery-backend"

// Version is the build version, overridden at link time:
//
//	go build -ldflags "-X github.com/ruteri/share-recovery-backend/common.Version=v1.2.3"
var Version = "dev"
