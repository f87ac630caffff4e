package model

// Report view filter. The SQL view and report.InScope both read these.
const (
	ReportCitySubstring    = "Chicago"
	ReportMultipleLocation = "Multiple"
	ReportRemoteDisplay    = "Anywhere in the U.S. (remote job)"
	ReportLimit            = 30
)
