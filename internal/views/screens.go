package views

import (
	"fmt"
	"strings"
)

type BoardRowData struct {
	ID          string
	Descripcion string
	Estado      string
	Display     string
	DueAt       string
	Asignados   []string
	InFlight    bool
}

type BoardPanelData struct {
	Rows       []BoardRowData
	SelectedID string
	TakenAt    string
	Skipped    int
	Spinner    string
}

// RenderBoardPanel groups the fluid rows into urgency sections, most urgent
// first, and marks the selected row with a cursor.
func RenderBoardPanel(data BoardPanelData) string {
	var b strings.Builder
	b.WriteString("tareas programadas:\n")
	if data.TakenAt != "" {
		b.WriteString(fmt.Sprintf("actualizado: %s", data.TakenAt))
		if data.Skipped > 0 {
			b.WriteString(fmt.Sprintf(" | omitidas: %d", data.Skipped))
		}
		b.WriteString("\n")
	}

	if len(data.Rows) == 0 {
		b.WriteString("(sin tareas pendientes)")
		return strings.TrimSpace(b.String())
	}

	for _, estado := range []string{"Vencida", "Por vencer", "Pendiente"} {
		section := make([]BoardRowData, 0)
		for _, row := range data.Rows {
			if row.Estado == estado {
				section = append(section, row)
			}
		}
		if len(section) == 0 {
			continue
		}
		b.WriteString(fmt.Sprintf("\n%s %d:\n", EstadoBadge(estado), len(section)))
		for _, row := range section {
			renderBoardRow(&b, row, data.SelectedID, data.Spinner)
		}
	}
	return strings.TrimSpace(b.String())
}

func renderBoardRow(b *strings.Builder, row BoardRowData, selectedID, spinner string) {
	cursor := " "
	if row.ID == selectedID {
		cursor = ">"
	}
	b.WriteString(fmt.Sprintf("%s %s %s", cursor, row.Display, row.Descripcion))
	if len(row.Asignados) > 0 {
		b.WriteString(" @" + strings.Join(row.Asignados, ","))
	}
	if row.DueAt != "" {
		b.WriteString(" vence:" + row.DueAt)
	}
	if row.InFlight {
		b.WriteString(" " + spinner + " enviando")
	}
	b.WriteString("\n")
}

type DetailPanelData struct {
	Descripcion string
	Estado      string
	Display     string
	DueAt       string
	Asignados   []string
	CreadoPor   string
}

func RenderDetailPanel(data DetailPanelData) string {
	if data.Descripcion == "" {
		return "detalle:\n(sin selección)"
	}
	var b strings.Builder
	b.WriteString("detalle:\n")
	b.WriteString(data.Descripcion + "\n")
	b.WriteString(fmt.Sprintf("estado: %s\n", EstadoBadge(data.Estado)))
	b.WriteString(fmt.Sprintf("tiempo: %s\n", data.Display))
	if data.DueAt != "" {
		b.WriteString(fmt.Sprintf("vence: %s\n", data.DueAt))
	}
	if len(data.Asignados) > 0 {
		b.WriteString(fmt.Sprintf("asignados: %s\n", strings.Join(data.Asignados, ", ")))
	}
	if data.CreadoPor != "" {
		b.WriteString(fmt.Sprintf("creada por: %s\n", data.CreadoPor))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

type HelpPanelData struct {
	Bindings []string
	HelpView string
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("ayuda:\n%s\n%s", strings.Join(data.Bindings, "\n"), data.HelpView)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("[%s] %s", strings.ToUpper(level), body)
}
