package summarizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/ideamans/go-l10n"
)

// MarkdownFormatter formats a Summary as a Markdown report.
// Labels are translated with go-l10n.
type MarkdownFormatter struct{}

// NewMarkdownFormatter creates a new MarkdownFormatter.
func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

// Format renders the summary.
func (f *MarkdownFormatter) Format(s *Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", l10n.T("Playback Summary"))
	fmt.Fprintf(&b, "%s: %s\n\n", l10n.T("Generated"), s.GeneratedAt.Format("2006-01-02 15:04:05"))

	section(&b, l10n.T("Input"))
	row(&b, l10n.T("File"), s.Input.Path)
	row(&b, l10n.T("Container"), s.Input.Container)
	row(&b, l10n.T("File Size"), formatBytes(s.Input.FileSize))
	if s.Input.SessionID != "" {
		row(&b, l10n.T("Session"), s.Input.SessionID)
	}
	b.WriteString("\n")

	section(&b, l10n.T("Video"))
	row(&b, l10n.T("Codec"), fmt.Sprintf("%s (%s)", s.Stream.CodecID, s.Stream.Family))
	row(&b, l10n.T("Resolution"), fmt.Sprintf("%dx%d", s.Stream.Width, s.Stream.Height))
	row(&b, l10n.T("Frame Rate"), fmt.Sprintf("%.3f fps", s.Stream.FrameRate))
	row(&b, l10n.T("Frame Count"), fmt.Sprintf("%d", s.Stream.FrameCount))
	row(&b, l10n.T("Keyframes"), fmt.Sprintf("%d", s.Stream.Keyframes))
	row(&b, l10n.T("Duration"), formatDuration(s.Stream.Duration))
	row(&b, l10n.T("Timing Source"), s.Stream.TimingSource)
	b.WriteString("\n")

	section(&b, l10n.T("Audio"))
	if s.Audio.Present {
		row(&b, l10n.T("Sample Rate"), fmt.Sprintf("%d Hz", s.Audio.SampleRate))
		row(&b, l10n.T("Channels"), fmt.Sprintf("%d", s.Audio.Channels))
		row(&b, l10n.T("Samples"), fmt.Sprintf("%d", s.Audio.TotalSamples))
		row(&b, l10n.T("Duration"), formatDuration(s.Audio.Duration))
	} else {
		row(&b, l10n.T("Audio"), l10n.T("None"))
	}
	b.WriteString("\n")

	section(&b, l10n.T("Playback"))
	row(&b, l10n.T("Result"), f.outcome(s.Playback))
	row(&b, l10n.T("Clock"), clockName(s.Playback.AudioClock))
	row(&b, l10n.T("Wall Time"), formatDuration(s.Playback.WallTime))
	row(&b, l10n.T("Playback Time"), formatDuration(s.Playback.PlaybackTime))
	row(&b, l10n.T("Last Frame"), fmt.Sprintf("%d", s.Playback.LastFrame))
	if s.Playback.FramesSaved > 0 {
		row(&b, l10n.T("Frames Saved"), fmt.Sprintf("%d", s.Playback.FramesSaved))
	}
	b.WriteString("\n")

	section(&b, l10n.T("Quality"))
	row(&b, l10n.T("Update Cycles"), fmt.Sprintf("%d", s.QA.Cycles))
	row(&b, l10n.T("Frames Shown"), fmt.Sprintf("%d", s.QA.FramesShown))
	row(&b, l10n.T("Missed Frames"), fmt.Sprintf("%d (%s)", s.QA.MissedFrames, percent(s.QA.MissedFrames, s.QA.MissedFrames+s.QA.FramesShown)))
	row(&b, l10n.T("Over-budget Cycles"), fmt.Sprintf("%d", s.QA.OverBudgetCycles))
	row(&b, l10n.T("Decode Errors"), fmt.Sprintf("%d", s.QA.DecodeErrors))
	row(&b, l10n.T("Seeks"), fmt.Sprintf("%d", s.QA.Seeks))
	row(&b, l10n.T("Decoder Resets"), fmt.Sprintf("%d", s.QA.DecoderResets))
	row(&b, l10n.T("Worst Update"), formatDuration(s.QA.UpdateTimeWorst))
	row(&b, l10n.T("Worst Decode"), formatDuration(s.QA.DecodeTimeWorst))
	row(&b, l10n.T("Worst Fetch"), formatDuration(s.QA.FetchTimeWorst))
	b.WriteString("\n")

	fmt.Fprintf(&b, "---\n%s webmplay\n", l10n.T("Generated by"))
	return b.String()
}

func (f *MarkdownFormatter) outcome(p PlaybackInfo) string {
	switch {
	case p.Interrupted:
		return l10n.T("Interrupted")
	case p.Completed:
		return l10n.T("Completed")
	case p.Looping:
		return l10n.T("Looping")
	default:
		return l10n.T("Stopped")
	}
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "## %s\n\n| %s | %s |\n|---|---|\n", title, l10n.T("Item"), l10n.T("Value"))
}

func row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "| %s | %s |\n", label, strings.ReplaceAll(value, "|", "\\|"))
}

func clockName(audio bool) string {
	if audio {
		return l10n.T("Audio")
	}
	return l10n.T("Wall clock")
}

func formatBytes(n int64) string {
	switch {
	case n >= 1024*1024:
		return fmt.Sprintf("%.2f MB", float64(n)/1024/1024)
	case n >= 1024:
		return fmt.Sprintf("%.2f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.3f s", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.2f ms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%d µs", d.Microseconds())
	}
}

func percent(part, total uint64) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(total))
}

// Ensure MarkdownFormatter implements Formatter
var _ Formatter = (*MarkdownFormatter)(nil)
