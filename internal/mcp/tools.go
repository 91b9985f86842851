package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-lab-forms/internal/descriptions"
	"github.com/a3tai/mcp-lab-forms/internal/form"
)

func fieldTypeNames() []string {
	names := make([]string, len(form.FieldTypes))
	for i, t := range form.FieldTypes {
		names[i] = string(t)
	}
	return names
}

func describe(name string) mcp.ToolOption {
	return mcp.WithDescription(descriptions.GetToolDescription(name))
}

func sessionParam() mcp.ToolOption {
	return mcp.WithString("session_id",
		mcp.Required(),
		mcp.Description("Session id returned by template_open, template_create or template_import_acroform"),
	)
}

func fieldIDParam(required bool) mcp.ToolOption {
	opts := []mcp.PropertyOption{mcp.Description("Field id")}
	if required {
		opts = append(opts, mcp.Required())
	}
	return mcp.WithString("field_id", opts...)
}

// geometryParams are the optional placement properties shared by field_add and field_update
func geometryParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("width", mcp.Description("Width in PDF points"), mcp.Min(0)),
		mcp.WithNumber("height", mcp.Description("Height in PDF points"), mcp.Min(0)),
		mcp.WithString("label", mcp.Description("Placeholder text, also accepted as the value key")),
		mcp.WithBoolean("required", mcp.Description("Whether the field must be filled before export")),
		mcp.WithNumber("font_size", mcp.Description("Font size in points (default 12)"), mcp.Min(1)),
	}
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.registerTemplateTools()
	s.registerFieldTools()
	s.registerEditorTools()
	s.registerValueTools()

	serverInfoTool := mcp.NewTool("lab_server_info",
		describe("lab_server_info"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

func (s *Server) registerTemplateTools() {
	openTool := mcp.NewTool("template_open",
		describe("template_open"),
		mcp.WithString("template_id",
			mcp.Required(),
			mcp.Description("Template id"),
		),
		mcp.WithString("mode",
			mcp.Description("Session mode"),
			mcp.Enum("edit", "fill", "review"),
			mcp.DefaultString("edit"),
		),
	)
	s.mcpServer.AddTool(openTool, s.handleTemplateOpen)

	createTool := mcp.NewTool("template_create",
		describe("template_create"),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("Id of the new template")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Template title")),
		mcp.WithString("pdf_url",
			mcp.Required(),
			mcp.Description("PDF location: http(s) URL, or a path inside the data directory"),
		),
	)
	s.mcpServer.AddTool(createTool, s.handleTemplateCreate)

	duplicateTool := mcp.NewTool("template_duplicate",
		describe("template_duplicate"),
		mcp.WithString("template_id", mcp.Required(), mcp.Description("Template to copy")),
		mcp.WithString("new_id", mcp.Description("Id of the copy (generated when empty)")),
		mcp.WithString("title", mcp.Description("Title of the copy (default: '<title> (copy)')")),
	)
	s.mcpServer.AddTool(duplicateTool, s.handleTemplateDuplicate)

	importTool := mcp.NewTool("template_import_acroform",
		describe("template_import_acroform"),
		mcp.WithString("pdf_url",
			mcp.Required(),
			mcp.Description("PDF location: http(s) URL, or a path inside the data directory"),
		),
		mcp.WithString("template_id", mcp.Description("Id of the new template (generated when empty)")),
		mcp.WithString("title", mcp.Description("Template title (default: the PDF file name)")),
	)
	s.mcpServer.AddTool(importTool, s.handleTemplateImport)

	saveTool := mcp.NewTool("template_save",
		describe("template_save"),
		sessionParam(),
	)
	s.mcpServer.AddTool(saveTool, s.handleTemplateSave)

	updateTool := mcp.NewTool("template_update",
		describe("template_update"),
		sessionParam(),
		mcp.WithString("title", mcp.Description("New title")),
		mcp.WithBoolean("published", mcp.Description("Publish or unpublish the template")),
	)
	s.mcpServer.AddTool(updateTool, s.handleTemplateUpdate)

	closeTool := mcp.NewTool("session_close",
		describe("session_close"),
		sessionParam(),
		mcp.WithDestructiveHintAnnotation(true),
	)
	s.mcpServer.AddTool(closeTool, s.handleSessionClose)

	listTool := mcp.NewTool("session_list",
		describe("session_list"),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.mcpServer.AddTool(listTool, s.handleSessionList)
}

func (s *Server) registerFieldTools() {
	addOpts := []mcp.ToolOption{
		describe("field_add"),
		sessionParam(),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Field type"),
			mcp.Enum(fieldTypeNames()...),
		),
		mcp.WithNumber("page", mcp.Required(), mcp.Description("1-based page number"), mcp.Min(1)),
		mcp.WithNumber("x", mcp.Required(), mcp.Description("Left edge in PDF points from the page's left")),
		mcp.WithNumber("y", mcp.Required(), mcp.Description("Top edge in PDF points from the page's top")),
		fieldIDParam(false),
	}
	addOpts = append(addOpts, geometryParams()...)
	s.mcpServer.AddTool(mcp.NewTool("field_add", addOpts...), s.handleFieldAdd)

	updateOpts := []mcp.ToolOption{
		describe("field_update"),
		sessionParam(),
		fieldIDParam(true),
		mcp.WithString("type", mcp.Description("Field type"), mcp.Enum(fieldTypeNames()...)),
		mcp.WithNumber("page", mcp.Description("1-based page number"), mcp.Min(1)),
		mcp.WithNumber("x", mcp.Description("Left edge in PDF points")),
		mcp.WithNumber("y", mcp.Description("Top edge in PDF points")),
	}
	updateOpts = append(updateOpts, geometryParams()...)
	s.mcpServer.AddTool(mcp.NewTool("field_update", updateOpts...), s.handleFieldUpdate)

	resizeTool := mcp.NewTool("field_resize",
		describe("field_resize"),
		sessionParam(),
		fieldIDParam(true),
		mcp.WithNumber("width", mcp.Required(), mcp.Description("Requested width in PDF points")),
		mcp.WithNumber("height", mcp.Required(), mcp.Description("Requested height in PDF points")),
	)
	s.mcpServer.AddTool(resizeTool, s.handleFieldResize)

	removeTool := mcp.NewTool("field_remove",
		describe("field_remove"),
		sessionParam(),
		mcp.WithArray("field_ids",
			mcp.Required(),
			mcp.Description("Ids of the fields to remove"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithDestructiveHintAnnotation(true),
	)
	s.mcpServer.AddTool(removeTool, s.handleFieldRemove)

	selectTool := mcp.NewTool("field_select",
		describe("field_select"),
		sessionParam(),
		mcp.WithArray("field_ids",
			mcp.Description("Ids that become the selection"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithBoolean("all", mcp.Description("Select every field on every page")),
		mcp.WithBoolean("clear", mcp.Description("Clear the selection")),
	)
	s.mcpServer.AddTool(selectTool, s.handleFieldSelect)
}

func (s *Server) registerEditorTools() {
	pointerTool := mcp.NewTool("editor_pointer",
		describe("editor_pointer"),
		sessionParam(),
		mcp.WithString("action",
			mcp.Required(),
			mcp.Description("Pointer event"),
			mcp.Enum("down", "move", "up", "cancel"),
		),
		mcp.WithNumber("x", mcp.Description("Viewport x in pixels")),
		mcp.WithNumber("y", mcp.Description("Viewport y in pixels")),
	)
	s.mcpServer.AddTool(pointerTool, s.handleEditorPointer)

	keyTool := mcp.NewTool("editor_key",
		describe("editor_key"),
		sessionParam(),
		mcp.WithString("key",
			mcp.Required(),
			mcp.Description("Key name as in KeyboardEvent.key, for example ArrowLeft, Delete or t"),
		),
		mcp.WithBoolean("shift", mcp.Description("Shift held")),
		mcp.WithBoolean("ctrl", mcp.Description("Control held")),
		mcp.WithBoolean("meta", mcp.Description("Command/Meta held")),
		mcp.WithBoolean("alt", mcp.Description("Alt held")),
		mcp.WithBoolean("in_text_input", mcp.Description("A text input has focus")),
	)
	s.mcpServer.AddTool(keyTool, s.handleEditorKey)

	stateTool := mcp.NewTool("editor_state",
		describe("editor_state"),
		sessionParam(),
		mcp.WithNumber("page", mcp.Description("Only report fields on this page"), mcp.Min(1)),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.mcpServer.AddTool(stateTool, s.handleEditorState)

	zoomTool := mcp.NewTool("view_zoom",
		describe("view_zoom"),
		sessionParam(),
		mcp.WithNumber("scale", mcp.Required(), mcp.Description("Requested zoom factor, 1 is 100%")),
	)
	s.mcpServer.AddTool(zoomTool, s.handleViewZoom)
}

func (s *Server) registerValueTools() {
	valuesTool := mcp.NewTool("values_set",
		describe("values_set"),
		sessionParam(),
		mcp.WithObject("values",
			mcp.Required(),
			mcp.Description("Values keyed by field id or label"),
		),
		mcp.WithBoolean("clear", mcp.Description("Drop existing values first")),
	)
	s.mcpServer.AddTool(valuesTool, s.handleValuesSet)

	submissionTool := mcp.NewTool("submission_load",
		describe("submission_load"),
		sessionParam(),
		mcp.WithString("submission",
			mcp.Required(),
			mcp.Description("Submission document as JSON: templateId, studentId, values"),
		),
	)
	s.mcpServer.AddTool(submissionTool, s.handleSubmissionLoad)

	renderTool := mcp.NewTool("overlay_render",
		describe("overlay_render"),
		sessionParam(),
		mcp.WithNumber("page", mcp.Description("1-based page number"), mcp.Min(1), mcp.DefaultNumber(1)),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.mcpServer.AddTool(renderTool, s.handleOverlayRender)

	exportTool := mcp.NewTool("submission_export",
		describe("submission_export"),
		sessionParam(),
		mcp.WithString("file_name", mcp.Description("Output file name inside the export directory")),
		mcp.WithBoolean("require_complete",
			mcp.Description("Fail when required fields are empty"),
			mcp.DefaultBool(true),
		),
	)
	s.mcpServer.AddTool(exportTool, s.handleSubmissionExport)
}
