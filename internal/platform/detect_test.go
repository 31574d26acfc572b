package platform

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealDetector_Detect(t *testing.T) {
	if _, err := NewPair(runtime.GOOS, runtime.GOARCH); err != nil {
		t.Skipf("host %s/%s is not a recognized platform", runtime.GOOS, runtime.GOARCH)
	}

	info, err := NewDetector().Detect(context.Background())
	require.NoError(t, err)

	want, _ := NewPair(runtime.GOOS, runtime.GOARCH)
	assert.Equal(t, want, info.Pair())
	assert.Equal(t, runtime.GOARCH, info.ArchRaw)

	if runtime.GOOS == "linux" && info.Platform != "" {
		assert.NotEmpty(t, info.Family, "family should be set when platform is set")
	}
	if runtime.GOOS != "linux" {
		assert.Nil(t, info.GetDistro())
	}
}

func TestRealDetector_Unsupported(t *testing.T) {
	detector := &RealDetector{goos: "linux", goarch: "s390x"}

	_, err := detector.Detect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedPlatform)
}

func TestStaticDetector(t *testing.T) {
	tests := []struct {
		name    string
		os      string
		arch    string
		want    Pair
		wantErr bool
	}{
		{name: "linux_amd64", os: "linux", arch: "amd64", want: Pair{OS: OSLinux, Arch: ArchAMD64}},
		{name: "darwin_arm64", os: "darwin", arch: "arm64", want: Pair{OS: OSMacOS, Arch: ArchARM64}},
		{name: "windows_amd64", os: "windows", arch: "amd64", want: Pair{OS: OSWindows, Arch: ArchAMD64}},
		{name: "bad_arch", os: "linux", arch: "ppc64le", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := NewStaticDetector(tt.os, tt.arch).Detect(context.Background())
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedPlatform)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, info.Pair())
		})
	}
}

func TestStaticDetector_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStaticDetector("linux", "amd64").Detect(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInfo_GetDistro(t *testing.T) {
	linux := &Info{OS: OSLinux, Arch: ArchAMD64, Platform: "ubuntu", Family: FamilyDebian, Version: "22.04"}
	require.NotNil(t, linux.GetDistro())
	assert.Equal(t, Distro{ID: "ubuntu", Family: FamilyDebian, Version: "22.04"}, *linux.GetDistro())
	assert.True(t, linux.IsFamily(FamilyDebian))

	mac := &Info{OS: OSMacOS, Arch: ArchARM64}
	assert.Nil(t, mac.GetDistro())
	assert.True(t, mac.IsAppleSilicon())
	assert.False(t, mac.IsFamily(FamilyDebian))
}
