// Package itf implements the higher-level request interfaces spec §4.6
// describes sitting on top of the FTP engine and the command interface:
// batch media/log downloads, single-file firmware/ephemeris uploads, and
// the blackbox telemetry listener. Each request type is a thin
// configuration of one of two shared engines in this package — fetch.go's
// multi-file download loop and upload.go's single-file upload — the same
// way arsdk_crashml_itf.c, arsdk_flight_log_itf.c, arsdk_pud_itf.c and
// arsdk_media_itf.c in the original implementation share one FTP-walking
// shape, and arsdk_updater_itf.c/arsdk_ephemeris_itf.c share another.
package itf

// Status is the closed request-outcome taxonomy every request interface
// reports through its complete callback (spec §4.6; mirrors
// arsdk_crashml_req_status and its siblings in the original).
type Status int

const (
	StatusOK Status = iota
	StatusCanceled
	StatusFailed
	StatusAborted
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusCanceled:
		return "canceled"
	case StatusFailed:
		return "failed"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}
