// Package connectors holds the clients for the remote systems r3form talks
// to. Each subpackage implements a driven port:
//
//   - sheety: RemoteDataSource over the Sheety REST proxy
//   - google/sheets: RemoteDataSource over the Google Sheets API
//   - appsscript: ReportGenerator over the document generation scripts
//
// The backend is chosen from the remote.backend setting at startup.
package connectors
