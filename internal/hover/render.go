package hover

import (
	"fmt"
	"strings"
)

// Unavailable is shown in place of a value the debugger did not report.
const Unavailable = "unavailable"

// NotInspectable marks a memory window that came back empty.
const NotInspectable = "_not inspectable_"

// render composes the hover Markdown:
//
//	[8] **RAX** = `0x2A`
//	 `42`
func (c *Controller) render(info Info, cfg Config, hooks []Hook) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%d] **%s**", info.Width, strings.ToUpper(info.Name))

	if info.Attached {
		value := info.Value
		if !info.HasValue {
			value = Unavailable
		}
		fmt.Fprintf(&sb, " = `%s`\n `%s`", value, info.Decimal)
	}

	if cfg.ShowArchWidth && info.ArchWidth > 0 && info.ArchWidth != info.Width {
		fmt.Fprintf(&sb, "\n\n_%d-byte register_", info.ArchWidth)
	}

	if info.Inspecting {
		if len(info.Memory) == 0 {
			sb.WriteString("\n\n" + NotInspectable)
		} else {
			fmt.Fprintf(&sb, "\n\n%s\n```\n%s\n```", info.Mode, strings.Join(info.Memory, "\n"))
		}
	}

	for _, h := range hooks {
		lines, err := h.OnHover(info)
		if err != nil {
			c.logger.Warn("hover hook failed: %v", err)
			continue
		}
		if len(lines) > 0 {
			sb.WriteString("\n\n" + strings.Join(lines, "\n"))
		}
	}

	return sb.String()
}
