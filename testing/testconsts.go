package testing

// Logger Constants
// These constants define common logger configurations used across test files.
const (
	// TestLoggerLevelDebug is the debug log level used in most tests
	TestLoggerLevelDebug = "debug"
	// TestLoggerLevelError is the error log level for tests requiring minimal output
	TestLoggerLevelError = "error"
	// TestLoggerLevelDisabled completely disables logging in tests
	TestLoggerLevelDisabled = "disabled"
)

// Request Constants
// Common URLs, paths and header lines used by client tests.
const (
	TestBaseURL       = "http://localhost"
	TestHTTPSURL      = "https://localhost/index"
	TestPathUser      = "/user/username"
	TestPathAge       = "/user/age"
	TestHeaderJSON    = "Content-Type: application/json"
	TestHeaderHTML    = "Content-Type: text/html"
	TestHeaderAjax    = "X-Requested-With: XMLHttpRequest"
	TestHeaderVersion = "X-Prototype-Version: 1.5.0"
	TestUsername      = "username"
	TestReferer       = "username:username"
	TestCertPath      = "./index"
)
