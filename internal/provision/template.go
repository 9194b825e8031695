package provision

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Template is the ordered list of relative folder paths created under every
// root. Parents always precede their children. A Template is never mutated
// after construction; use Paths for a copy.
type Template struct {
	paths []string
}

// NewTemplate normalizes each path to NFC and validates the list: every
// entry must be a clean, relative, unique path whose parent (if any) appears
// earlier in the list.
func NewTemplate(paths []string) (Template, error) {
	normalized := make([]string, len(paths))
	for i, p := range paths {
		normalized[i] = norm.NFC.String(p)
	}

	if err := ValidatePaths(normalized); err != nil {
		return Template{}, err
	}

	return Template{paths: normalized}, nil
}

// MustTemplate is NewTemplate for compile-time constant lists.
func MustTemplate(paths []string) Template {
	t, err := NewTemplate(paths)
	if err != nil {
		panic(err)
	}

	return t
}

// Paths returns a copy of the template entries in creation order.
func (t Template) Paths() []string {
	return append([]string(nil), t.paths...)
}

// Len returns the number of entries.
func (t Template) Len() int {
	return len(t.paths)
}

// ValidatePaths checks the parent-before-child ordering invariant and path
// hygiene. It returns every problem found, joined.
func ValidatePaths(paths []string) error {
	var errs []error

	seen := make(map[string]bool, len(paths))

	for i, p := range paths {
		switch {
		case p == "":
			errs = append(errs, fmt.Errorf("template entry %d: empty path", i))
			continue
		case strings.HasPrefix(p, "/"):
			errs = append(errs, fmt.Errorf("template entry %d (%q): must be relative", i, p))
			continue
		case path.Clean(p) != p:
			errs = append(errs, fmt.Errorf("template entry %d (%q): not a clean path (want %q)", i, p, path.Clean(p)))
			continue
		case p == ".." || strings.HasPrefix(p, "../"):
			errs = append(errs, fmt.Errorf("template entry %d (%q): escapes the root folder", i, p))
			continue
		case seen[p]:
			errs = append(errs, fmt.Errorf("template entry %d (%q): duplicate", i, p))
			continue
		}

		if parent := path.Dir(p); parent != "." && !seen[parent] {
			errs = append(errs, fmt.Errorf("template entry %d (%q): parent %q must be listed before it", i, p, parent))
		}

		seen[p] = true
	}

	return errors.Join(errs...)
}

// DefaultPaths is the creative-production hierarchy provisioned under every
// root. Order matters: parents precede children.
var DefaultPaths = []string{
	"00_Client",
	"01_Creative",
	"02_Development",
	"03_For Client",
	"04_Final",
	"00_Client/1_Brief",
	"00_Client/2_Assets",
	"00_Client/3_References",
	"00_Client/4_Comments",
	"00_Client/3_References/Audio",
	"00_Client/3_References/Images",
	"00_Client/3_References/Videos",
	"01_Creative/00_Pre_Production",
	"01_Creative/01_Design",
	"01_Creative/02_Animatics",
	"01_Creative/03_Production",
	"01_Creative/04_Audio",
	"01_Creative/05_Freelancers",
	"01_Creative/00_Pre_Production/00_Project_Plan",
	"01_Creative/00_Pre_Production/01_Concept",
	"01_Creative/00_Pre_Production/02_Storyboards",
	"01_Creative/01_Design/00_Pitch",
	"01_Creative/01_Design/01_Styleframes",
	"01_Creative/01_Design/02_Assets",
	"01_Creative/01_Design/00_Pitch/Set_01",
	"01_Creative/01_Design/00_Pitch/Set_02",
	"01_Creative/01_Design/00_Pitch/Set_03",
	"01_Creative/01_Design/01_Styleframes/00_References",
	"01_Creative/01_Design/01_Styleframes/01_Photoshop",
	"01_Creative/01_Design/01_Styleframes/02_Illustrator",
	"01_Creative/01_Design/01_Styleframes/03_AfterEffects",
	"01_Creative/01_Design/01_Styleframes/04_Output",
	"01_Creative/01_Design/01_Styleframes/01_Photoshop/F00-00",
	"01_Creative/01_Design/01_Styleframes/02_Illustrator/F00-00",
	"01_Creative/01_Design/01_Styleframes/03_AfterEffects/F00-00",
	"01_Creative/02_Animatics/00_Photoshop",
	"01_Creative/02_Animatics/01_AfterEffects",
	"01_Creative/02_Animatics/02_Renders",
	"01_Creative/03_Production/00_AfterEffects",
	"01_Creative/03_Production/01_Cinema4D",
	"01_Creative/03_Production/02_FramebyFrame",
	"01_Creative/03_Production/03_Premiere",
	"01_Creative/03_Production/04_Stills",
	"01_Creative/03_Production/00_AfterEffects/0_Working_Files",
	"01_Creative/03_Production/00_AfterEffects/1_Rendered",
	"01_Creative/03_Production/01_Cinema4D/0_Working_Files",
	"01_Creative/03_Production/01_Cinema4D/1_Rendered",
	"01_Creative/03_Production/02_FramebyFrame/0_Working_Files",
	"01_Creative/03_Production/02_FramebyFrame/1_Rendered",
	"01_Creative/03_Production/03_Premiere/0_Working_Files",
	"01_Creative/03_Production/03_Premiere/1_Rendered",
	"01_Creative/03_Production/04_Stills/0_Working_Files",
	"01_Creative/03_Production/04_Stills/1_Rendered",
	"01_Creative/04_Audio/00_Music",
	"01_Creative/04_Audio/01_Voiceover",
	"01_Creative/04_Audio/02_Sound_Design",
	"01_Creative/04_Audio/03_Working_Files",
	"01_Creative/04_Audio/04_Final_Mixdown",
	"01_Creative/05_Freelancers/00_Common_Brief",
	"01_Creative/05_Freelancers/01_For_Freelancers",
	"01_Creative/05_Freelancers/02_From_Freelancers",
}

// DefaultTemplate returns the validated default hierarchy.
func DefaultTemplate() Template {
	return MustTemplate(DefaultPaths)
}
