// Package sheets reads and writes the case list and submission log directly
// through the Google Sheets API.
//
// The first row of each sheet is the header. Header cells are matched to
// record fields through the wire schema aliases, so column order is free.
// A submission's row id is its sheet row number.
package sheets
