// Package tracing provides hooks that observe carousel transitions and write
// them to a log, a SQLite recording, or OpenTelemetry spans.
package tracing

import (
	"github.com/bokamoso/signin/hooking"
)

type named interface {
	Name() string
}

func domainName(ctx hooking.HookCtx) string {
	if n, ok := ctx.Domain.(named); ok {
		return n.Name()
	}

	return ""
}
