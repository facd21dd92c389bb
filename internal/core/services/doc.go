// Package services implements the driving port interfaces.
//
// FormService is the form controller. It reads through CacheService,
// asks TrackerService whether the selected case was already submitted,
// and writes through the RemoteDataSource port. ReportService runs the
// document pipeline once a submission is visible remotely.
package services
