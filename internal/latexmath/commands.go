package latexmath

// cmdKind tells the parser how to consume a recognized command.
type cmdKind int

const (
	cmdSymbol       cmdKind = iota // translated directly to a Symbol
	cmdFrac                        // \frac{num}{den}
	cmdSqrt                        // \sqrt[n]{x}
	cmdStyle                       // one-argument style or accent, becomes a Command
	cmdMathbb                      // \mathbb, with RR NN ZZ QQ CC collapsed
	cmdBrace                       // \underbrace / \overbrace with optional annotation
	cmdOperatorName                // \operatorname{name}
	cmdText                        // \text{...}: raw text up to the matching brace
	cmdOperator                    // big operator with optional limits
	cmdBegin                       // \begin{env}
	cmdEnd                         // \end outside an environment
	cmdLeft                        // \left<delim>
	cmdRight                       // \right<delim>
	cmdSpace                       // one Space
	cmdWideSpace                   // \qquad: two Spaces
	cmdSizing                      // \big( and friends: the size is dropped
)

type command struct {
	kind  cmdKind
	typst string
	annot byte // script marker that carries a brace annotation
}

// commands maps LaTeX command names (without the backslash) to how they are
// parsed. Names absent from the table become argument-less Command nodes.
var commands = map[string]command{}

var greekLetters = []string{
	"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta", "iota",
	"kappa", "lambda", "mu", "nu", "xi", "omicron", "pi", "rho", "sigma", "tau",
	"upsilon", "phi", "chi", "psi", "omega",
	"Gamma", "Delta", "Theta", "Lambda", "Xi", "Pi", "Sigma", "Upsilon", "Phi",
	"Psi", "Omega",
}

var functionNames = []string{
	"sin", "cos", "tan", "cot", "sec", "csc", "arcsin", "arccos", "arctan",
	"sinh", "cosh", "tanh", "coth", "log", "ln", "lg", "exp", "dim", "ker",
	"deg", "hom", "mod", "Pr",
}

var symbolNames = map[string]string{
	// greek variants
	"varepsilon": "epsilon.alt",
	"vartheta":   "theta.alt",
	"varpi":      "pi.alt",
	"varrho":     "rho.alt",
	"varsigma":   "sigma.alt",
	"varphi":     "phi.alt",
	"varkappa":   "kappa.alt",

	// binary operators
	"pm":       "plus.minus",
	"mp":       "minus.plus",
	"times":    "times",
	"cdot":     "dot",
	"div":      "div",
	"ast":      "ast",
	"star":     "star",
	"circ":     "compose",
	"bullet":   "bullet",
	"oplus":    "plus.circle",
	"otimes":   "times.circle",
	"wedge":    "and",
	"vee":      "or",
	"setminus": "without",

	// relations
	"le":       "<=",
	"leq":      "<=",
	"ge":       ">=",
	"geq":      ">=",
	"ne":       "!=",
	"neq":      "!=",
	"ll":       "<<",
	"gg":       ">>",
	"approx":   "approx",
	"equiv":    "equiv",
	"sim":      "tilde.op",
	"simeq":    "tilde.eq",
	"cong":     "tilde.equiv",
	"propto":   "prop",
	"mid":      "divides",
	"parallel": "parallel",
	"perp":     "perp",
	"models":   "models",
	"vdash":    "tack.r",

	// sets
	"in":         "in",
	"notin":      "in.not",
	"ni":         "in.rev",
	"subset":     "subset",
	"supset":     "supset",
	"subseteq":   "subset.eq",
	"supseteq":   "supset.eq",
	"cup":        "union",
	"cap":        "inter",
	"emptyset":   "emptyset",
	"varnothing": "nothing",

	// misc
	"infty":    "infinity",
	"partial":  "partial",
	"hbar":     "planck.reduce",
	"ell":      "ell",
	"nabla":    "nabla",
	"forall":   "forall",
	"exists":   "exists",
	"nexists":  "exists.not",
	"neg":      "not",
	"lnot":     "not",
	"land":     "and",
	"lor":      "or",
	"top":      "top",
	"bot":      "bot",
	"angle":    "angle",
	"triangle": "triangle",
	"prime":    "prime",
	"aleph":    "aleph",
	"Re":       "Re",
	"Im":       "Im",

	// arrows
	"to":             "->",
	"rightarrow":     "->",
	"gets":           "<-",
	"leftarrow":      "<-",
	"leftrightarrow": "<->",
	"Rightarrow":     "=>",
	"implies":        "=>",
	"Leftarrow":      "arrow.l.double",
	"impliedby":      "arrow.l.double",
	"Leftrightarrow": "<=>",
	"iff":            "<=>",
	"mapsto":         "|->",
	"uparrow":        "arrow.t",
	"downarrow":      "arrow.b",
	"longrightarrow": "-->",
	"longleftarrow":  "<--",
	"Longrightarrow": "==>",
	"hookrightarrow": "arrow.r.hook",

	// dots
	"ldots": "...",
	"dots":  "...",
	"cdots": "dots.c",
	"vdots": "dots.v",
	"ddots": "dots.down",

	// delimiters used outside \left and \right
	"langle": "angle.l",
	"rangle": "angle.r",
	"lfloor": "floor.l",
	"rfloor": "floor.r",
	"lceil":  "ceil.l",
	"rceil":  "ceil.r",
	"lvert":  "|",
	"rvert":  "|",
	"vert":   "|",
	"lVert":  "||",
	"rVert":  "||",
	"Vert":   "||",
}

// styles are one-argument commands keyed by LaTeX name, valued by Typst name.
var styles = map[string]string{
	"mathbf":     "bold",
	"textbf":     "bold",
	"bm":         "bold",
	"boldsymbol": "bold",
	"mathcal":    "cal",
	"cal":        "cal",
	"mathit":     "italic",
	"textit":     "italic",
	"mathsf":     "sans",
	"mathtt":     "mono",
	"texttt":     "mono",
	"mathfrak":   "frak",
	"hat":        "hat",
	"widehat":    "hat",
	"vec":        "arrow",
	"dot":        "dot",
	"ddot":       "dot.double",
	"tilde":      "tilde",
	"widetilde":  "tilde",
	"bar":        "overline",
	"overline":   "overline",
	"underline":  "underline",
	"check":      "caron",
	"breve":      "breve",
	"acute":      "acute",
	"grave":      "grave",
	"cancel":     "cancel",
}

var operators = map[string]string{
	"sum":       "sum",
	"prod":      "product",
	"coprod":    "product.co",
	"int":       "integral",
	"iint":      "integral.double",
	"iiint":     "integral.triple",
	"oint":      "integral.cont",
	"lim":       "lim",
	"limsup":    "limsup",
	"liminf":    "liminf",
	"max":       "max",
	"min":       "min",
	"sup":       "sup",
	"inf":       "inf",
	"arg":       "arg",
	"det":       "det",
	"gcd":       "gcd",
	"bigcup":    "union.big",
	"bigcap":    "inter.big",
	"bigoplus":  "plus.circle.big",
	"bigotimes": "times.circle.big",
	"bigwedge":  "and.big",
	"bigvee":    "or.big",
}

var sizing = []string{
	"big", "Big", "bigg", "Bigg",
	"bigl", "Bigl", "biggl", "Biggl",
	"bigr", "Bigr", "biggr", "Biggr",
	"bigm", "Bigm",
}

// escapes maps the character after a backslash to its symbol.
var escapes = map[byte]string{
	'{': "{",
	'}': "}",
	'|': "||",
	'&': "amp",
	'_': `\_`,
	'#': `\#`,
	'$': `\$`,
	'%': "%",
}

// bbLetters are the blackboard letters Typst has dedicated symbols for.
var bbLetters = map[string]string{
	"R": "RR",
	"N": "NN",
	"Z": "ZZ",
	"Q": "QQ",
	"C": "CC",
}

// delimiterNames translates named \left / \right markers.
var delimiterNames = map[string]string{
	"{":      "{",
	"}":      "}",
	"|":      "‖",
	"langle": "⟨",
	"rangle": "⟩",
	"lfloor": "⌊",
	"rfloor": "⌋",
	"lceil":  "⌈",
	"rceil":  "⌉",
	"vert":   "|",
	"lvert":  "|",
	"rvert":  "|",
	"Vert":   "‖",
	"lVert":  "‖",
	"rVert":  "‖",
}

func init() {
	for _, name := range greekLetters {
		commands[name] = command{kind: cmdSymbol, typst: name}
	}
	for _, name := range functionNames {
		commands[name] = command{kind: cmdSymbol, typst: name}
	}
	for name, typst := range symbolNames {
		commands[name] = command{kind: cmdSymbol, typst: typst}
	}
	for name, typst := range styles {
		commands[name] = command{kind: cmdStyle, typst: typst}
	}
	for name, typst := range operators {
		commands[name] = command{kind: cmdOperator, typst: typst}
	}
	for _, name := range sizing {
		commands[name] = command{kind: cmdSizing}
	}

	commands["frac"] = command{kind: cmdFrac}
	commands["dfrac"] = command{kind: cmdFrac}
	commands["tfrac"] = command{kind: cmdFrac}
	commands["sqrt"] = command{kind: cmdSqrt}
	commands["mathbb"] = command{kind: cmdMathbb, typst: "bb"}
	commands["underbrace"] = command{kind: cmdBrace, typst: "underbrace", annot: '_'}
	commands["overbrace"] = command{kind: cmdBrace, typst: "overbrace", annot: '^'}
	commands["operatorname"] = command{kind: cmdOperatorName, typst: "op"}
	commands["text"] = command{kind: cmdText}
	commands["mathrm"] = command{kind: cmdText}
	commands["textrm"] = command{kind: cmdText}
	commands["mbox"] = command{kind: cmdText}
	commands["begin"] = command{kind: cmdBegin}
	commands["end"] = command{kind: cmdEnd}
	commands["left"] = command{kind: cmdLeft}
	commands["right"] = command{kind: cmdRight}
	commands["quad"] = command{kind: cmdSpace}
	commands["qquad"] = command{kind: cmdWideSpace}
}

// lookupCommand reports how name is parsed.
func lookupCommand(name string) (command, bool) {
	c, ok := commands[name]
	return c, ok
}
