package interp

import (
	"fmt"

	"pdfcore/colorspace"
	"pdfcore/contentstream"
	"pdfcore/coords"
	"pdfcore/fontresolve"
	"pdfcore/ir/raw"
	"pdfcore/ir/semantic"
	"pdfcore/observability"
	"pdfcore/perr"
	"pdfcore/recovery"
	"pdfcore/render"
)

// Interpreter walks a content stream's operations, maintaining graphics
// state and issuing Fill/Stroke/DrawImage calls against a render.Canvas.
// Plain Form XObjects run on the same Interpreter; transparency groups,
// tiling pattern cells, and soft-mask groups run on child Interpreters that
// share the parent's XObject recursion guard and resolved-font cache, so a
// Form XObject cannot re-enter itself while already on the execution stack.
type Interpreter struct {
	Canvas    render.Canvas
	Colors    *colorspace.Cache
	FontReg   *fontresolve.PredefinedCMapRegistry
	fontCache map[*semantic.Font]fontresolve.ResolvedFont

	// Log receives an Error for every operator error classified as a
	// corrupt stream or fatal, and a Warn for every other operator error
	// (missing resource, malformed operand), before Recover is consulted.
	// Defaults to observability.NopLogger{}.
	Log observability.Logger
	// Recover decides, per recoverErr's classification, whether an
	// operator error aborts Run (nil or ActionFail) or is skipped after
	// logging (ActionSkip/ActionFix/ActionWarn). nil means fail-fast,
	// matching scanner.Config/parser.Config when Recovery is unset.
	Recover recovery.Strategy

	// Sink, if set, receives every glyph shown by Tj/TJ/'/" along with the
	// text rendering matrix in effect, regardless of TextRenderMode —
	// including invisible text (Tr 3), which callers doing extraction
	// rather than painting still need. nil means no one is listening.
	Sink TextSink

	gs      GraphicsState
	gsStack []GraphicsState

	path pathBuilder

	pendingClip     bool
	pendingClipEven bool

	textActive bool
	textClip   *render.Path

	baseCTM coords.Matrix // initial CTM, for pattern-space matrices

	visiting map[raw.ObjectRef]bool // Form XObject recursion guard, shared across the call tree
	depth    int
}

const maxRecursionDepth = 24

// NewInterpreter builds an Interpreter targeting canvas, with ctm as the
// content stream's initial (device) coordinate transform.
func NewInterpreter(canvas render.Canvas, colors *colorspace.Cache, fontReg *fontresolve.PredefinedCMapRegistry, ctm coords.Matrix) *Interpreter {
	return &Interpreter{
		Canvas:    canvas,
		Colors:    colors,
		FontReg:   fontReg,
		fontCache: make(map[*semantic.Font]fontresolve.ResolvedFont),
		gs:        initialGraphicsState(ctm),
		baseCTM:   ctm,
		visiting:  make(map[raw.ObjectRef]bool),
		Log:       observability.NopLogger{},
	}
}

// ExecutePage renders every content stream of page onto the interpreter's
// canvas, in document order, sharing one graphics-state stack across all of
// them: a page's content streams concatenate into one content body.
func (ip *Interpreter) ExecutePage(page *semantic.Page) error {
	for _, cs := range page.Contents {
		ops := cs.Operations
		if ops == nil && len(cs.RawBytes) > 0 {
			parsed, err := contentstream.Parse(cs.RawBytes)
			if err != nil {
				return fmt.Errorf("interp: parsing content stream: %w", err)
			}
			ops = parsed
		}
		if err := ip.Run(ops, page.Resources); err != nil {
			return err
		}
	}
	return nil
}

// RunWithCTM executes ops with the graphics state reset to ctm as the
// initial CTM (otherwise identical to initialGraphicsState), restoring the
// interpreter's prior graphics state and base CTM afterward. Used to
// interpret content isolated from the caller's current position, such as an
// annotation appearance stream anchored to its own Rect rather than the
// page's text/path cursor.
func (ip *Interpreter) RunWithCTM(ops []semantic.Operation, resources *semantic.Resources, ctm coords.Matrix) error {
	savedGS, savedBase := ip.gs, ip.baseCTM
	ip.gs = initialGraphicsState(ctm)
	ip.baseCTM = ctm
	err := ip.Run(ops, resources)
	ip.gs, ip.baseCTM = savedGS, savedBase
	return err
}

// Run executes ops against resources, which supplies fonts, color spaces,
// XObjects, patterns, and shadings named by resource operators. resources
// may be nil; operators that name a resource then find nothing.
func (ip *Interpreter) Run(ops []semantic.Operation, resources *semantic.Resources) error {
	ip.depth++
	defer func() { ip.depth-- }()
	if ip.depth > maxRecursionDepth {
		return perr.Fatal(recovery.Location{Component: "interp:Run"}, fmt.Errorf("recursion depth exceeded (%d)", maxRecursionDepth))
	}
	for _, op := range ops {
		if err := ip.exec(op, resources); err != nil {
			if handled := ip.recoverErr(err, op.Operator); handled != nil {
				return handled
			}
		}
	}
	return nil
}

// recoverErr logs err at the severity its classification implies and, if
// ip.Recover is set, asks it to decide whether the operator that produced
// err is skipped (Run continues to the next operation) or fatal (Run
// returns a wrapped *perr.Error). A nil Recover fails fast, matching
// scanner.Config and parser.Config when Recovery is left unset.
func (ip *Interpreter) recoverErr(err error, operator string) error {
	kind := classifyOperatorError(operator)
	if pe, ok := err.(*perr.Error); ok {
		kind = pe.Kind
	}
	loc := recovery.Location{Component: "interp:" + operator}
	if ip.Log != nil {
		switch kind {
		case perr.KindCorruptStream, perr.KindFatal:
			ip.Log.Error("content stream operator failed", observability.String("operator", operator), observability.Error("err", err))
		default:
			ip.Log.Warn("recoverable content stream operator error", observability.String("operator", operator), observability.Error("err", err))
		}
	}
	if ip.Recover == nil {
		return perr.New(kind, loc, err)
	}
	switch ip.Recover.OnError(nil, err, loc) {
	case recovery.ActionSkip, recovery.ActionFix, recovery.ActionWarn:
		return nil
	default:
		return perr.New(kind, loc, err)
	}
}

// classifyOperatorError maps an operator to the perr.Kind its failure most
// often represents: resource lookups (font, XObject, shading, ExtGState,
// color space/pattern) miss a named resource far more often than they hit
// malformed syntax, while matrix operands and inline image data fail on
// malformed input instead.
func classifyOperatorError(operator string) perr.Kind {
	switch operator {
	case "Do", "gs", "sh", "Tf", "cs", "CS", "sc", "SC", "scn", "SCN":
		return perr.KindMissingResource
	case "cm", "Tm":
		return perr.KindMalformedSyntax
	case "INLINE_IMAGE":
		return perr.KindCorruptStream
	default:
		return perr.KindMalformedSyntax
	}
}

func (ip *Interpreter) exec(op semantic.Operation, res *semantic.Resources) error {
	switch op.Operator {
	case "q":
		ip.gsStack = append(ip.gsStack, ip.gs.clone())
	case "Q":
		if n := len(ip.gsStack); n > 0 {
			ip.gs = ip.gsStack[n-1]
			ip.gsStack = ip.gsStack[:n-1]
		}
	case "cm":
		m, err := matrixOperand(op.Operands)
		if err != nil {
			return err
		}
		ip.gs.CTM = m.Multiply(ip.gs.CTM)
	case "w":
		ip.gs.LineWidth = num(op.Operands, 0)
	case "J":
		ip.gs.LineCap = int(num(op.Operands, 0))
	case "j":
		ip.gs.LineJoin = int(num(op.Operands, 0))
	case "M":
		ip.gs.MiterLimit = num(op.Operands, 0)
	case "d":
		ip.gs.DashArray, ip.gs.DashPhase = dashOperand(op.Operands)
	case "ri":
		ip.gs.RenderingIntent = name(op.Operands, 0)
	case "i":
		// Flatness tolerance: affects curve subdivision quality only: no
		// state worth keeping since FlattenBezier uses a fixed segment count.
	case "gs":
		return ip.applyExtGState(name(op.Operands, 0), res)

	case "m", "l", "c", "v", "y", "h", "re":
		ip.execPathConstruction(op)

	case "S", "s", "f", "F", "f*", "B", "B*", "b", "b*", "n":
		return ip.execPaint(op.Operator)

	case "W":
		ip.pendingClip, ip.pendingClipEven = true, false
	case "W*":
		ip.pendingClip, ip.pendingClipEven = true, true

	case "g", "G", "rg", "RG", "k", "K", "cs", "CS", "sc", "SC", "scn", "SCN":
		return ip.execColor(op, res)

	case "BT":
		ip.textActive = true
		ip.gs.TextMatrix = coords.Identity()
		ip.gs.TextLineMatrix = coords.Identity()
	case "ET":
		ip.textActive = false
	case "Tc":
		ip.gs.CharSpace = num(op.Operands, 0)
	case "Tw":
		ip.gs.WordSpace = num(op.Operands, 0)
	case "Tz":
		ip.gs.HScale = num(op.Operands, 0) / 100
	case "TL":
		ip.gs.Leading = num(op.Operands, 0)
	case "Tf":
		return ip.execSetFont(name(op.Operands, 0), num(op.Operands, 1), res)
	case "Tr":
		ip.gs.TextRenderMode = int(num(op.Operands, 0))
	case "Ts":
		ip.gs.TextRise = num(op.Operands, 0)
	case "Td":
		ip.execTd(num(op.Operands, 0), num(op.Operands, 1))
	case "TD":
		ip.gs.Leading = -num(op.Operands, 1)
		ip.execTd(num(op.Operands, 0), num(op.Operands, 1))
	case "Tm":
		m, err := matrixOperand(op.Operands)
		if err != nil {
			return err
		}
		ip.gs.TextMatrix = m
		ip.gs.TextLineMatrix = m
	case "T*":
		ip.execTd(0, -ip.gs.Leading)
	case "Tj":
		return ip.showText(bytesOperand(op.Operands, 0), res)
	case "'":
		ip.execTd(0, -ip.gs.Leading)
		return ip.showText(bytesOperand(op.Operands, 0), res)
	case "\"":
		ip.gs.WordSpace = num(op.Operands, 0)
		ip.gs.CharSpace = num(op.Operands, 1)
		ip.execTd(0, -ip.gs.Leading)
		return ip.showText(bytesOperand(op.Operands, 2), res)
	case "TJ":
		return ip.showTextArray(op.Operands, res)

	case "Do":
		return ip.execDo(name(op.Operands, 0), res)
	case "INLINE_IMAGE":
		return ip.execInlineImage(op)
	case "sh":
		return ip.execShading(name(op.Operands, 0), res)

	case "BMC", "BDC", "EMC", "MP", "DP", "BX", "EX":
		// Marked content and compatibility sections carry no rendering
		// semantics for this interpreter.
	}
	return nil
}
