package mcp

import "github.com/mark3labs/mcp-go/mcp"

func workspaceSymbolsTool() mcp.Tool {
	return mcp.NewTool("workspace_symbols",
		mcp.WithDescription("Prefix-search declarations (classes, functions, constants, namespaces) across the indexed workspace"),
		mcp.WithString("query", mcp.Required(), mcp.Description("Name prefix to search for")),
		mcp.WithNumber("limit", mcp.Description("Maximum results (default 50)")),
	)
}

func documentSymbolsTool() mcp.Tool {
	return mcp.NewTool("document_symbols",
		mcp.WithDescription("List the declarations of one document"),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Document URI (file://...)")),
	)
}

func hoverTool() mcp.Tool {
	return mcp.NewTool("hover",
		mcp.WithDescription("Describe the declaration under a position"),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Document URI")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("0-based line")),
		mcp.WithNumber("character", mcp.Required(), mcp.Description("0-based character")),
	)
}

func definitionTool() mcp.Tool {
	return mcp.NewTool("definition",
		mcp.WithDescription("Resolve the declaration sites of the reference under a position"),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Document URI")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("0-based line")),
		mcp.WithNumber("character", mcp.Required(), mcp.Description("0-based character")),
	)
}

func referencesTool() mcp.Tool {
	return mcp.NewTool("references",
		mcp.WithDescription("Find every reference resolving to the declaration under a position"),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Document URI")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("0-based line")),
		mcp.WithNumber("character", mcp.Required(), mcp.Description("0-based character")),
	)
}

func completionTool() mcp.Tool {
	return mcp.NewTool("completion",
		mcp.WithDescription("Complete variables, members or workspace names at a position"),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Document URI")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("0-based line")),
		mcp.WithNumber("character", mcp.Required(), mcp.Description("0-based character")),
		mcp.WithString("prefix", mcp.Description("Already-typed word, e.g. \"$ap\" or \"Use\"")),
	)
}

func signatureHelpTool() mcp.Tool {
	return mcp.NewTool("signature_help",
		mcp.WithDescription("Signature and active parameter of the call enclosing a position"),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Document URI")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("0-based line")),
		mcp.WithNumber("character", mcp.Required(), mcp.Description("0-based character")),
	)
}

func openDocumentTool() mcp.Tool {
	return mcp.NewTool("open_document",
		mcp.WithDescription("Register a document with the index (parse, symbol table, reference table)"),
		mcp.WithString("uri", mcp.Required(), mcp.Description("Document URI")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Full document text")),
	)
}

func indexStatusTool() mcp.Tool {
	return mcp.NewTool("index_status",
		mcp.WithDescription("Index statistics: root, indexed documents, key count"),
	)
}
