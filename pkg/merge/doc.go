// Package merge fills severance documents ("finiquitos") from spreadsheet
// records.
//
// A template is a .docx file containing placeholder tokens such as
// «Nombre_completo» or «NETO». For every record the driver parses a fresh copy
// of the template body, substitutes each token inside the formatting run that
// holds it, forces the overlay formatting (bold, Verdana, 11pt by default) on
// the runs it touched and writes a new .docx whose other parts are copied
// unchanged.
//
// # Basic Usage
//
//	tmpl, err := merge.LoadTemplateFile("plantilla.docx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	records := []*merge.Record{
//	    merge.RecordOf("Nombre completo", "Ana López", "NETO", 1234.56),
//	}
//	report, err := merge.NewDriver().Run(ctx, tmpl, records, merge.DirSink{Dir: "salida"})
//
// # Values
//
// Record fields hold a Value: a number, a date, text or Missing. Normalize
// renders them as "1 234.50", "2024-01-31", trimmed text and "0.00"
// respectively.
//
// # Amounts in words
//
// «NETO» and «Salario_por_día» follow context rules. Depending on the phrase
// around the token the amount is written as a number alone or followed by its
// Spanish wording, e.g. "1 234.56 (MIL DOSCIENTOS TREINTA Y CUATRO PESOS
// 56/100 M.N.)". Table cells always get the number alone.
//
// # Limitations
//
// A token whose characters are spread over several runs (for instance because
// part of it was retyped in Word) is not substituted. Such tokens are reported
// by the engine and by Template.Report.
package merge
