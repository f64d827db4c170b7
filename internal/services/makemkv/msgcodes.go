package makemkv

// MakeMKV MSG codes. Codes >= 5000 are disc-level messages; lower codes are
// general or I/O messages.
const (
	MsgReadError            = 2003 // Read error (classify by text)
	MsgWriteError           = 2019 // Write error
	MsgTitleError           = 5003 // Single title save failed
	MsgRipCompleted         = 5004 // "N titles saved, M failed"
	MsgOperationSucceeded   = 5005 // Operation successfully completed
	MsgDiscOpenError        = 5010 // Can't open disc
	MsgEvalExpiredTooOld    = 5021 // License/app too old
	MsgBackupCompleted      = 5036 // Backup completed
	MsgRipSummary           = 5037 // Copy complete summary
	MsgEvalPeriodExpired    = 5052 // Eval period warning
	MsgEvalExpiredShareware = 5055 // Shareware expired
	MsgBackupDone           = 5070 // Backup done
	MsgBackupFailed         = 5080 // Backup mode failed
)

var successCodes = map[int]struct{}{
	MsgOperationSucceeded: {},
	MsgBackupCompleted:    {},
	MsgRipSummary:         {},
	MsgBackupDone:         {},
}

var errorCodes = map[int]string{
	MsgReadError:            "check the disc surface and drive",
	MsgWriteError:           "check that the scratch directory exists and is writable",
	MsgTitleError:           "one title failed but others may succeed",
	MsgDiscOpenError:        "disc may not be readable or the drive may be busy",
	MsgEvalExpiredTooOld:    "update or register MakeMKV",
	MsgEvalExpiredShareware: "update or register MakeMKV",
	MsgBackupFailed:         "check the disc and free space",
}

// IsSuccessCode reports whether code is one of the benign completion codes.
func IsSuccessCode(code int) bool {
	_, ok := successCodes[code]
	return ok
}

// IsErrorCode reports whether code is a known error code.
func IsErrorCode(code int) bool {
	_, ok := errorCodes[code]
	return ok
}

// IsLicenseCode reports whether code signals an expired or outdated license.
func IsLicenseCode(code int) bool {
	return code == MsgEvalExpiredTooOld || code == MsgEvalExpiredShareware
}

// Hint returns the operator hint for a known error code.
func Hint(code int) string {
	return errorCodes[code]
}
