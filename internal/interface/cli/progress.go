package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/neilberkman/eqviz/internal/core/upload"
)

// progressBar draws upload progress on a single terminal line
type progressBar struct {
	writer    io.Writer
	name      string
	size      int64
	startTime time.Time
	last      int
}

func newProgressBar(w io.Writer, name string, size int64) *progressBar {
	return &progressBar{writer: w, name: name, size: size, startTime: time.Now(), last: -1}
}

// Update redraws the bar for s; repeated percentages are skipped
func (p *progressBar) Update(s upload.State) {
	if s.Phase != upload.Uploading && s.Phase != upload.Succeeded {
		return
	}
	if s.Progress == p.last {
		return
	}
	p.last = s.Progress

	// Draw progress bar (40 chars wide)
	barWidth := 40
	filled := barWidth * s.Progress / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	displayName := p.name
	if len(displayName) > 40 {
		displayName = displayName[:37] + "..."
	}

	sent := uint64(p.size) * uint64(s.Progress) / 100
	_, _ = fmt.Fprintf(p.writer, "\r[%s] %3d%% %s/%s | %s",
		bar, s.Progress, humanize.Bytes(sent), humanize.Bytes(uint64(p.size)), displayName)
}

// Finish ends the line and reports elapsed time
func (p *progressBar) Finish(ok bool) {
	elapsed := time.Since(p.startTime)
	if ok {
		_, _ = fmt.Fprintf(p.writer, "\nUploaded %s in %s\n", humanize.Bytes(uint64(p.size)), elapsed.Round(time.Millisecond))
		return
	}
	if p.last >= 0 {
		_, _ = fmt.Fprintln(p.writer)
	}
}
