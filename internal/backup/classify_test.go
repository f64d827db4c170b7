package backup

import (
	"testing"
	"time"

	"discbackup/internal/services/makemkv"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		text string
		want Severity
	}{
		{"Hash check failed for file 00001.m2ts", SeverityRecoverable},
		{"Read error in file 00002.m2ts", SeverityRecoverable},
		{"Error reading sector 1234", SeverityRecoverable},
		{"Scsi error - MEDIUM ERROR:L-EC UNCORRECTABLE ERROR", SeverityRecoverable},
		{"Operation cancelled by user", SeverityRecoverable},
		{"Bad sector at 1234", SeverityRecoverable},
		{"Out of memory", SeverityFatal},
		{"Disk full", SeverityFatal},
		{"Failed to write: No space left on device", SeverityFatal},
		{"Cannot create directory /backup/MOVIE", SeverityFatal},
		{"Permission denied", SeverityFatal},
		{"Access denied to drive", SeverityFatal},
		{"Destination folder already exists", SeverityFatal},
		{"Invalid parameter", SeverityFatal},
		{"Fatal error occurred", SeverityFatal},
		{"Something odd happened", SeverityFatal},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			if got := Classify(tc.text); got != tc.want {
				t.Fatalf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
			}
		})
	}
}

func TestClassifyFatalWinsOverRecoverable(t *testing.T) {
	texts := []string{
		"Read error, disk full",
		"Disk full after read error",
		"Hash check failed; permission denied writing file",
		"Bad sector: invalid response",
	}
	for _, text := range texts {
		if got := Classify(text); got != SeverityFatal {
			t.Fatalf("Classify(%q) = %s, want fatal", text, got)
		}
	}
}

func TestExtractDetail(t *testing.T) {
	tests := []struct {
		text string
		want Detail
	}{
		{
			"Hash check failed for file 00001.m2ts at offset: 1048576",
			Detail{File: "00001.m2ts", Kind: KindHashCheck, Offset: 1048576, HasOffset: true},
		},
		{
			"Error reading file '/BDMV/STREAM/00002.m2ts' at 4096 bytes",
			Detail{File: "/BDMV/STREAM/00002.m2ts", Kind: KindReadError, Offset: 4096, HasOffset: true},
		},
		{
			"Failed to save title 3.",
			Detail{File: "3", Kind: KindSaveFailure},
		},
		{
			"Scsi error at offset '2048'",
			Detail{Kind: KindReadError, Offset: 2048, HasOffset: true},
		},
		{
			"Something odd happened",
			Detail{Kind: KindUnknown},
		},
	}
	for _, tc := range tests {
		t.Run(tc.text, func(t *testing.T) {
			if got := ExtractDetail(tc.text); got != tc.want {
				t.Fatalf("ExtractDetail(%q) = %+v, want %+v", tc.text, got, tc.want)
			}
		})
	}
}

func TestSuccessCodesAreNeverErrors(t *testing.T) {
	for _, code := range []int{5005, 5036, 5037, 5070} {
		msg := makemkv.Message{Code: code, Text: "fatal error: backup failed, disk full, invalid"}
		if IsErrorMessage(msg) {
			t.Fatalf("code %d classified as error", code)
		}
	}

	ev, ok := makemkv.ParseLine(`MSG:5070,0,0,"Backup done"`)
	if !ok {
		t.Fatal("expected MSG line to parse")
	}
	msg := ev.(makemkv.Message)
	if !IsSuccessCode(msg.Code) || IsErrorMessage(msg) {
		t.Fatalf("expected backup done to be success, got %+v", msg)
	}
}

func TestIsErrorMessage(t *testing.T) {
	tests := []struct {
		msg  makemkv.Message
		want bool
	}{
		{makemkv.Message{Code: 1005, Text: "MakeMKV v1.17.7 linux(x64-release) started"}, false},
		{makemkv.Message{Code: 5004, Text: "1 titles saved, 1 failed"}, false},
		{makemkv.Message{Code: 2003, Text: "Scsi error"}, true},
		{makemkv.Message{Code: 0, Text: "Error: drive not ready"}, true},
		{makemkv.Message{Code: 5055, Text: "Evaluation period has expired"}, true},
	}
	for _, tc := range tests {
		if got := IsErrorMessage(tc.msg); got != tc.want {
			t.Fatalf("IsErrorMessage(%+v) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestNewErrorRecordLicenseCodesAreFatal(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := NewErrorRecord(makemkv.Message{Code: makemkv.MsgEvalExpiredShareware, Text: "Read error while checking key"}, at)
	if rec.Severity != SeverityFatal {
		t.Fatalf("expected license code to be fatal, got %s", rec.Severity)
	}
	if !rec.Timestamp.Equal(at) || rec.Code != makemkv.MsgEvalExpiredShareware {
		t.Fatalf("unexpected record %+v", rec)
	}
}
