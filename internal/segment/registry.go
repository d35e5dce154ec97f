package segment

import "fmt"

// CellCutScript calls stereo's CellCut with the bGEF, the cropped mask and
// the output directory passed as argv[1..3], printing the returned path.
const CellCutScript = `import sys
from stereo.tools.cell_cut import CellCut
cc = CellCut(cgef_out_dir=sys.argv[3])
print(cc.cell_cut(bgef_path=sys.argv[1], mask_path=sys.argv[2]))`

// New creates a segmenter for the given variant.
//   - "cellcut" (default): python with CellCutScript
//   - "exec": the user supplied args
//   - "none": no segmentation
func New(variant string, args []string, python, outDir string) (Segmenter, error) {
	switch variant {
	case "cellcut", "":
		if python == "" {
			python = "python3"
		}
		return &Command{
			Args:   []string{python, "-c", CellCutScript, "{matrix}", "{mask}", "{outdir}"},
			OutDir: outDir,
		}, nil
	case "exec":
		if len(args) == 0 {
			return nil, fmt.Errorf("segmenter exec needs a command")
		}
		return &Command{Args: args, OutDir: outDir}, nil
	case "none":
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unknown segmenter variant: %s", variant)
	}
}
