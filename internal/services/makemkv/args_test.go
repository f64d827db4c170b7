package makemkv_test

import (
	"reflect"
	"testing"

	"discbackup/internal/services/makemkv"
)

func TestBuildBackupArgs(t *testing.T) {
	tests := []struct {
		name string
		in   makemkv.BackupArgs
		want []string
	}{
		{
			name: "full mode",
			in:   makemkv.BackupArgs{SourceIndex: 0, Destination: "/base/temp/MOVIE", CacheMB: 1024},
			want: []string{"backup", "--decrypt", "--cache=1024", "--noscan", "-r", "--progress=-same", "disc:0", "/base/temp/MOVIE"},
		},
		{
			name: "split and minlength",
			in:   makemkv.BackupArgs{SourceIndex: 2, Destination: "/d", CacheMB: 128, SplitSizeMB: 4000, MinLengthSeconds: 600},
			want: []string{"backup", "--decrypt", "--cache=128", "--noscan", "-r", "--progress=-same", "--split-size=4000", "--minlength=600", "disc:2", "/d"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := makemkv.BuildBackupArgs(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %q\nwant %q", got, tt.want)
			}
			if again := makemkv.BuildBackupArgs(tt.in); !reflect.DeepEqual(got, again) {
				t.Fatal("expected deterministic output")
			}
		})
	}
}
