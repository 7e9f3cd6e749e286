package endpoint

import "strings"

// Well-known IPC identity of the configuration broker
const (
	// ServiceName is the well-known service name bound by exactly one broker
	// process per session
	ServiceName = "com.system.configurationManager"

	// InterfaceName identifies the per-application call interface
	InterfaceName = ServiceName + ".Application.Configuration"
)

// IPC members exposed per application
const (
	MemberGetConfiguration     = "GetConfiguration"
	MemberChangeConfiguration  = "ChangeConfiguration"
	SignalConfigurationChanged = "ConfigurationChanged"
)

// ObjectPath derives the endpoint identity for an application: the service
// name with dots replaced by slashes, then /Application/<name>.
func ObjectPath(service, application string) string {
	return "/" + strings.ReplaceAll(service, ".", "/") + "/Application/" + application
}

// subject maps an application member onto a bus subject
func subject(service, application, member string) string {
	return service + ".Application." + application + "." + member
}

// GetSubject returns the request subject for GetConfiguration
func GetSubject(service, application string) string {
	return subject(service, application, MemberGetConfiguration)
}

// ChangeSubject returns the request subject for ChangeConfiguration
func ChangeSubject(service, application string) string {
	return subject(service, application, MemberChangeConfiguration)
}

// ChangedSubject returns the notification subject for ConfigurationChanged
func ChangedSubject(service, application string) string {
	return subject(service, application, SignalConfigurationChanged)
}
