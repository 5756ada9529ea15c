// Package files reads the flat-file inputs of a run and writes outputs
// safely.
//
// Table reads CSV files and the first sheet of XLSX workbooks with
// case-insensitive, trimmed headers. RosterReader and PriorReader build on
// it to load biographic rosters and prior-year coursegrades, failing with a
// SchemaViolation that names every missing column.
//
// ParsePriorArg validates LABEL=PATH references and Discovery finds
// prior-year files in a directory.
//
// Example usage:
//
//	prior, err := files.ParsePriorArgs([]string{"2022-23=/data/hs_2022_23.csv"})
//
//	grades, err := files.PriorReader{}.LoadPriorCourses(ctx, prior[0].Path)
//
//	err = files.WriteFileAtomic("out/cumulative.csv", func(w io.Writer) error {
//	    _, err := w.Write(data)
//	    return err
//	})
package files
