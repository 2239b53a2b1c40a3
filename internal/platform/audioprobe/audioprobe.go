// Pacote audioprobe estima a duração dos áudios enviados. Só MP3 é suportado.
package audioprobe

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

var ErrUnsupported = errors.New("formato de audio sem suporte para duracao")

// go-mp3 sempre decodifica para PCM 16 bits estéreo.
const bytesPerSample = 4

type Prober struct{}

func New() Prober { return Prober{} }

// Duration devolve a duração do áudio. Para formatos que não sabe ler, retorna ErrUnsupported.
func (Prober) Duration(contentType, name string, data []byte) (time.Duration, error) {
	if !isMP3(contentType, name) {
		return 0, ErrUnsupported
	}

	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("audioprobe: decodificar mp3: %w", err)
	}

	length := decoder.Length()
	rate := decoder.SampleRate()
	if length <= 0 || rate <= 0 {
		return 0, fmt.Errorf("audioprobe: mp3 sem amostras")
	}

	samples := length / bytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(rate), nil
}

func isMP3(contentType, name string) bool {
	switch strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])) {
	case "audio/mpeg", "audio/mp3", "audio/mpeg3", "audio/x-mpeg-3":
		return true
	}
	return strings.EqualFold(filepath.Ext(name), ".mp3")
}
