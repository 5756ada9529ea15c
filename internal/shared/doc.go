// Package shared holds helpers used by more than one cumgpa package.
//
// The testutil subpackage captures slog output so tests can assert on the
// warnings a stage emits for dropped, skipped or coerced records:
//
//	logger, logs := testutil.NewTestLogger(t)
//	_, report, err := dataprocessing.NewAssembler(logger, cfg).Assemble(ctx, tables)
//	testutil.AssertLogContains(t, logs, slog.LevelWarn, "marks without course info dropped")
//	testutil.AssertLogAttr(t, logs, "dropped", int64(1))
//
// Integer attributes are captured as int64, the kind slog stores them as.
package shared
