// Package appsscript calls the report generation web apps.
//
// Each stage is a deployed script answering GET requests with a JSONP body:
//
//	<callback>({"success":true,"progress":{...}});
//
// The client strips the callback wrapper and decodes the payload.
package appsscript
