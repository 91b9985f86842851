package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	// Session Tools
	TemplateOpenDescription = `Open a lab form template in an edit, fill or review session.

**When to use:** Before any other template operation. Every field, editor, value and export tool works on the session id this returns.

**Why it's useful:** Loads the template once, fetches its PDF once and reports the page geometry, so later calls only describe what changed.

**Examples:**
• Teacher edits a worksheet: "Open titration-lab in edit mode to place the answer boxes"
• Student fills it in: "Open titration-lab in fill mode for student s-42"
• Grading: "Open titration-lab in review mode and load the submission"

**Common workflows:**
1. Authoring: template_open (edit) → field_add / editor_key → template_save
2. Filling: template_open (fill) → values_set → submission_export
3. Review: template_open (review) → submission_load → overlay_render

**Best practices:** Close sessions with session_close when done; unsaved edits are discarded on close.`

	TemplateCreateDescription = `Create a new template over a PDF and open it in edit mode.

**When to use:** A new experiment sheet has been uploaded and needs form fields.

**Why it's useful:** Reads the page count and first-page size from the PDF itself, so the template's coordinate model matches the document.

**Examples:**
• "Create template ph-lab titled 'pH Measurements' over uploads/ph.pdf"

**Best practices:** Use template_import_acroform instead when the PDF already carries fillable fields.`

	TemplateDuplicateDescription = `Copy a template under a new id with fresh field ids.

**When to use:** Reusing last term's worksheet as the starting point for a new one.

**Why it's useful:** The copy is unpublished and editable even when the source is locked, and its field ids never collide with submissions against the original.

**Examples:**
• "Duplicate titration-lab as titration-lab-2026 titled 'Titration (2026)'"`

	TemplateImportDescription = `Turn the AcroForm fields already inside a PDF into a new template.

**When to use:** The PDF was exported from a word processor or form designer with fillable fields.

**Why it's useful:** Converts widget rectangles from PDF space (bottom-left origin) to template space (top-left origin) and maps field kinds to template field types, skipping what cannot be mapped.

**Examples:**
• "Import the fields of forms/safety-quiz.pdf as template safety-quiz"

**Common workflows:**
1. Migration: template_import_acroform → editor_state (check skipped widgets) → field_update → template_save

**Best practices:** Radio groups and push buttons are reported as skipped; place replacements with field_add.`

	TemplateSaveDescription = `Persist the title, fields and publish flag of an edit session.

**When to use:** After a batch of edits, and before closing an edit session.

**Best practices:** Saving is last-writer-wins. Publishing locks the template against further field edits.`

	TemplateUpdateDescription = `Change the title or publish state of the template in an edit session.

**When to use:** Renaming a worksheet, or publishing it so it can be assigned to students.

**Why it's useful:** Publishing is one way under the default lock policy: once published, fields can no longer be added, moved, resized or removed.

**Examples:**
• "Publish titration-lab"
• "Rename the open template to 'Titration (revised)'"`

	SessionCloseDescription = `End a session and release its document renders.`

	SessionListDescription = `List the open sessions with their template, mode, scale and unsaved state.`

	// Field Tools
	FieldAddDescription = `Add a field to the template at an exact position.

**When to use:** Precise placement from known coordinates, for example a box aligned to a printed line.

**Why it's useful:** Coordinates are PDF points with a top-left origin, independent of any zoom level. Missing sizes take the type's default size.

**Examples:**
• "Add a number field on page 2 at (310, 455) labelled 'Volume (mL)'"
• "Add a required signature field at the bottom of page 3"

**Best practices:** Field ids are generated when omitted. Use editor_key for pointer-anchored creation.`

	FieldUpdateDescription = `Change any subset of a field's properties.

**When to use:** Relabelling, retyping, marking required, or setting an exact position or size.

**Why it's useful:** The edit is checked against the page range and extent rules first; an invalid edit is rejected and the field keeps its previous state.`

	FieldResizeDescription = `Resize a field the way the editor's resize handle does.

**When to use:** Making a box larger or smaller without breaking the editor's size rules.

**Why it's useful:** Checkboxes stay square with a 16pt floor; other fields keep at least 40 x 20pt. Use field_update to set an exact size without these rules.`

	FieldRemoveDescription = `Remove fields by id. Removed fields leave the selection in the same step.`

	FieldSelectDescription = `Replace the selection, select every field, or clear the selection.

**When to use:** Before editor_key nudges or deletes, and before a drag via editor_pointer.`

	// Editor Tools
	EditorPointerDescription = `Send a pointer event to the editor canvas in viewport pixels.

**When to use:** Reproducing mouse gestures: drag-moving fields, resizing from the bottom-right handle, or marquee selection on empty canvas.

**Why it's useful:** Gestures follow the editor rules exactly: dragging a selected field moves the whole selection, a handle resize keeps checkboxes square and respects minimum sizes, and a marquee selects every field it overlaps.

**Examples:**
• Marquee: down (10,10) → move (400,300) → up (400,300)
• Drag: down on a field → up 50px to the right

**Best practices:** Viewport positions include the page stacking offsets reported by editor_state.`

	EditorKeyDescription = `Send a key press to the editor.

**When to use:** Keyboard editing: arrows nudge the selection by 1pt (10pt with shift), Delete/Backspace removes it, Escape clears it, Ctrl/Cmd+A selects all, and t, a, n, c, d, s create text, multiline, number, checkbox, date and signature fields at the last pointer position.

**Best practices:** Keys sent with inTextInput set are ignored, matching an editor where an input has focus.`

	EditorStateDescription = `Report the fields, selection, active gesture and page layout of a session.

**When to use:** After any edit, to see the resulting coordinates and which fields are selected.`

	ViewZoomDescription = `Zoom a session's view.

**When to use:** Changing the scale used for pointer events, overlay elements and page renders.

**Why it's useful:** The scale is clamped to the session's range (editor or filler). The overlay is hidden briefly after a zoom so stale field positions are never drawn over a freshly scaled page.`

	// Value Tools
	ValuesSetDescription = `Enter values in a fill session. Review sessions are read only.

**When to use:** Filling in the form on behalf of a student.

**Why it's useful:** Values may be keyed by field id or label. Checkbox answers accept true, "true", "on", "yes" and 1.

**Examples:**
• "Set name to 'Ada Lovelace' and 'Volume (mL)' to 24.3 in session 6f1c..."`

	SubmissionLoadDescription = `Load a stored submission document into a fill or review session.

**When to use:** Grading: show exactly what a student submitted over the original sheet.

**Best practices:** The submission must belong to the session's template. The student reference may be a plain id or an expanded student object.`

	OverlayRenderDescription = `Render one page with the form overlay drawn on top and return it as a PNG.

**When to use:** Checking placement visually in edit mode, or seeing a submission as the reviewer does.

**Why it's useful:** Uses the same compositor for every mode; field boxes and selection in edit mode, values in fill and review mode.

**Best practices:** Render after view_zoom to see fields at the new scale. If the page itself cannot be rendered, the fields are still drawn on a blank page and the failure is reported.`

	SubmissionExportDescription = `Burn the session's values into the template PDF and write the result.

**When to use:** Producing the final filled PDF for printing, archiving or grading.

**Why it's useful:** Text is drawn with the field's font size and wrapped to the field width; checked checkboxes get an X; empty fields are skipped. The original PDF is never modified.

**Examples:**
• "Export session 6f1c... to titration-ada.pdf, failing if required fields are empty"

**Best practices:** An export failure produces no file; fix the reported field and export again.`

	// Server Tools
	ServerInfoDescription = `Describe the server: configured directories, lock policy, zoom ranges, document cache usage, stored templates and available tools.

**When to use:** First call in a new conversation, to learn which templates exist and how the server is configured.`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"template_open":            TemplateOpenDescription,
	"template_create":          TemplateCreateDescription,
	"template_duplicate":       TemplateDuplicateDescription,
	"template_import_acroform": TemplateImportDescription,
	"template_save":            TemplateSaveDescription,
	"template_update":          TemplateUpdateDescription,
	"session_close":            SessionCloseDescription,
	"session_list":             SessionListDescription,
	"field_add":                FieldAddDescription,
	"field_update":             FieldUpdateDescription,
	"field_resize":             FieldResizeDescription,
	"field_remove":             FieldRemoveDescription,
	"field_select":             FieldSelectDescription,
	"editor_pointer":           EditorPointerDescription,
	"editor_key":               EditorKeyDescription,
	"editor_state":             EditorStateDescription,
	"view_zoom":                ViewZoomDescription,
	"values_set":               ValuesSetDescription,
	"submission_load":          SubmissionLoadDescription,
	"overlay_render":           OverlayRenderDescription,
	"submission_export":        SubmissionExportDescription,
	"lab_server_info":          ServerInfoDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// Summary returns the first line of a tool's description
func Summary(toolName string) string {
	desc := GetToolDescription(toolName)
	for i, r := range desc {
		if r == '\n' {
			return desc[:i]
		}
	}
	return desc
}

// GetAllToolNames returns every tool name in lexical order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
