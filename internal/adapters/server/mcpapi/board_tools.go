package mcpapi

import (
	"context"
	"errors"
	"strings"

	"github.com/evanschultz/scorecard/internal/adapters/server/common"
	"github.com/evanschultz/scorecard/internal/domain"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// shapeNames lists the accepted card shapes.
func shapeNames() []string {
	shapes := domain.Shapes()
	out := make([]string, 0, len(shapes))
	for _, shape := range shapes {
		out = append(out, string(shape))
	}
	return out
}

// registerReadTools registers the tools that never change the board.
func registerReadTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"scorecard.get_board",
			mcp.WithDescription("Return every lane, card and connection on the strategy map, plus a content hash."),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			state, err := board.GetBoard(ctx)
			return jsonResult("get_board", state, err)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"scorecard.overlay",
			mcp.WithDescription("Return the connector paths (SVG path data and arrowheads) for the current layout."),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			overlay, err := board.Overlay(ctx)
			return jsonResult("overlay", overlay, err)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"scorecard.advice",
			mcp.WithDescription("Build the strategy-advisor chat request. Omit question to analyze the whole map."),
			mcp.WithString("question", mcp.Description("Free-form question for the advisor")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			advice, err := board.Advice(ctx, req.GetString("question", ""))
			return jsonResult("advice", advice, err)
		},
	)
}

// registerBoardTools registers the card, lane, connection and reset mutation tools.
func registerBoardTools(srv *mcpserver.MCPServer, board common.BoardService) {
	srv.AddTool(
		mcp.NewTool(
			"scorecard.add_node",
			mcp.WithDescription("Add a default card to one lane."),
			mcp.WithString("lane_id", mcp.Required(), mcp.Description("Lane id"), mcp.Enum(domain.LaneIDs()...)),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			laneID, err := req.RequireString("lane_id")
			if err != nil {
				return argError(err), nil
			}
			node, err := board.AddNode(ctx, common.AddNodeRequest{LaneID: laneID})
			return jsonResult("add_node", node, err)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"scorecard.update_node",
			mcp.WithDescription("Update one card. Only the provided fields change."),
			mcp.WithString("node_id", mcp.Required(), mcp.Description("Card id")),
			mcp.WithString("text", mcp.Description("Card label")),
			mcp.WithNumber("x", mcp.Description("Left offset inside the lane")),
			mcp.WithNumber("y", mcp.Description("Top offset inside the lane")),
			mcp.WithString("shape", mcp.Description("Card shape"), mcp.Enum(shapeNames()...)),
			mcp.WithString("fill_color", mcp.Description("Fill colour as hex or hsl()")),
			mcp.WithString("border_color", mcp.Description("Border colour as hex or hsl()")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			var args common.UpdateNodeRequest
			if err := req.BindArguments(&args); err != nil {
				return argError(err), nil
			}
			if strings.TrimSpace(args.NodeID) == "" {
				return argError(errors.New(`required argument "node_id" not found`)), nil
			}
			node, err := board.UpdateNode(ctx, args)
			return jsonResult("update_node", node, err)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"scorecard.delete_node",
			mcp.WithDescription("Delete one card and every connection touching it."),
			mcp.WithString("lane_id", mcp.Required(), mcp.Description("Lane id holding the card")),
			mcp.WithString("node_id", mcp.Required(), mcp.Description("Card id")),
			mcp.WithDestructiveHintAnnotation(true),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			laneID, err := req.RequireString("lane_id")
			if err != nil {
				return argError(err), nil
			}
			nodeID, err := req.RequireString("node_id")
			if err != nil {
				return argError(err), nil
			}
			err = board.DeleteNode(ctx, common.DeleteNodeRequest{LaneID: laneID, NodeID: nodeID})
			return jsonResult("delete_node", map[string]any{"deleted": nodeID}, err)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"scorecard.resize_lane",
			mcp.WithDescription("Set one lane's height. Heights below the minimum are raised to it."),
			mcp.WithString("lane_id", mcp.Required(), mcp.Description("Lane id"), mcp.Enum(domain.LaneIDs()...)),
			mcp.WithNumber("height", mcp.Required(), mcp.Description("Lane height in board units")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			laneID, err := req.RequireString("lane_id")
			if err != nil {
				return argError(err), nil
			}
			height, err := req.RequireFloat("height")
			if err != nil {
				return argError(err), nil
			}
			lane, err := board.ResizeLane(ctx, common.ResizeLaneRequest{LaneID: laneID, Height: height})
			return jsonResult("resize_lane", lane, err)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"scorecard.connect",
			mcp.WithDescription("Draw a directed cause-effect link between two cards."),
			mcp.WithString("from_id", mcp.Required(), mcp.Description("Source card id")),
			mcp.WithString("to_id", mcp.Required(), mcp.Description("Target card id")),
		),
		func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			from, err := req.RequireString("from_id")
			if err != nil {
				return argError(err), nil
			}
			to, err := req.RequireString("to_id")
			if err != nil {
				return argError(err), nil
			}
			conn, err := board.Connect(ctx, common.ConnectRequest{FromID: from, ToID: to})
			return jsonResult("connect", conn, err)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"scorecard.clear_connections",
			mcp.WithDescription("Remove every connection from the map."),
			mcp.WithDestructiveHintAnnotation(true),
			mcp.WithIdempotentHintAnnotation(true),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			state, err := board.ClearConnections(ctx)
			return jsonResult("clear_connections", state, err)
		},
	)

	srv.AddTool(
		mcp.NewTool(
			"scorecard.reset",
			mcp.WithDescription("Restore the empty four-lane map."),
			mcp.WithDestructiveHintAnnotation(true),
			mcp.WithIdempotentHintAnnotation(true),
		),
		func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			state, err := board.Reset(ctx)
			return jsonResult("reset", state, err)
		},
	)
}
