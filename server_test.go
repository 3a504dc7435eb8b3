package nfsd3

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestAddExportSkipsDuplicatePath guards against a FileSystem-advertised
// export being offered to clients twice over EXPORT/MNT: AddExport must
// leave a path already present untouched (mount.go's handleExport walks
// s.exports verbatim).
func TestAddExportSkipsDuplicatePath(t *testing.T) {
	srv := &Server{exports: []Export{{Path: "/", RootId: fakeRoot}}}

	srv.AddExport("/", fakeRoot)
	require.Len(t, srv.exports, 1)

	srv.AddExport("/extra", fakeFile)
	require.Len(t, srv.exports, 2)
	require.Equal(t, Export{Path: "/extra", RootId: fakeFile}, srv.exports[1])
}
