package drive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		mime string
		want Kind
	}{
		{MimeFolder, KindFolder},
		{"application/vnd.google-apps.document", KindNativeDocument},
		{"application/vnd.google-apps.spreadsheet", KindNativeDocument},
		{MimeShortcut, KindNativeDocument},
		{"application/pdf", KindFile},
		{"", KindFile},
	}

	for _, tt := range tests {
		t.Run(tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.mime))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "folder", KindFolder.String())
	assert.Equal(t, "file", KindFile.String())
	assert.Equal(t, "native-document", KindNativeDocument.String())
}
