package pkgconfig_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alia5/camerameta/internal/resolve/pkgconfig"
)

// fakeRunner answers pkg-config queries from a table keyed by the joined args.
func fakeRunner(answers map[string]string) (pkgconfig.Runner, *[]string) {
	var calls []string
	return func(args ...string) ([]byte, error) {
		key := strings.Join(args, " ")
		calls = append(calls, key)
		out, ok := answers[key]
		if !ok {
			return nil, errors.New("Package " + args[len(args)-1] + " was not found")
		}
		return []byte(out), nil
	}, &calls
}

func TestProbe(t *testing.T) {
	run, _ := fakeRunner(map[string]string{
		"--modversion libcamera":    "0.5.2\n",
		"--cflags-only-I libcamera": "-I/usr/include/libcamera -I/opt/include \n",
	})

	lib, err := pkgconfig.ProbeWith(run)
	require.NoError(t, err)
	assert.Equal(t, "libcamera", lib.Name)
	assert.Equal(t, "0.5.2", lib.Version.String())
	assert.Equal(t, []string{"/usr/include/libcamera", "/opt/include"}, lib.IncludeDirs)
	assert.Equal(t, "/usr/include/libcamera", lib.IncludeDir())
}

func TestProbeFallsBackToCamera(t *testing.T) {
	run, calls := fakeRunner(map[string]string{
		"--modversion camera":    "0.0.5",
		"--cflags-only-I camera": "",
	})

	lib, err := pkgconfig.ProbeWith(run)
	require.NoError(t, err)
	assert.Equal(t, "camera", lib.Name)
	assert.Equal(t, "", lib.IncludeDir())
	assert.Equal(t, []string{"--modversion libcamera", "--modversion camera", "--cflags-only-I camera"}, *calls)
}

func TestProbeReportsFirstError(t *testing.T) {
	run, _ := fakeRunner(nil)
	_, err := pkgconfig.ProbeWith(run)
	require.Error(t, err)
	assert.ErrorContains(t, err, "libcamera was not found")
}

func TestProbeBadVersion(t *testing.T) {
	run, _ := fakeRunner(map[string]string{"--modversion libcamera": "not-a-version"})
	_, err := pkgconfig.ProbeWith(run, "libcamera")
	assert.ErrorContains(t, err, "bad version")
}
