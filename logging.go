package uac

import "github.com/sirupsen/logrus"

// log is the package-level logger. It defaults to logrus's standard
// logger; call SetLogger to redirect this package's diagnostics (devices
// skipped during enumeration, ignored streaming interfaces, dropped
// alt-settings, stream start/stop and runtime status such as withered
// transfer pools) into an application's own logrus instance. The
// pkg/descriptors, pkg/topology and pkg/transfers packages log through
// logrus's standard logger directly and are not redirected by SetLogger.
var log = logrus.StandardLogger()

// SetLogger redirects this package's diagnostics to l.
func SetLogger(l *logrus.Logger) {
	log = l
}
