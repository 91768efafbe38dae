package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mlskit/uniffi-tools/pkg"
)

// toolSpec describes one downloadable archive from TOOLS.yml
type toolSpec struct {
	Condition  string `yaml:"if,omitempty"`
	Rejections string `yaml:"ifNot,omitempty"`
	URL        string
	Dest       string
	Sha256     string
	Strip      int
	MarkExec   []string `yaml:"markExec,omitempty"`
}

type toolsConfig struct {
	Vars  map[string]string
	Tools map[string]toolSpec
}

var fetchToolsCmd = &cobra.Command{
	Use:   "fetch-tools",
	Short: "Downloads and unpacks the generator toolchain",
	Long: `Downloads and unpacks the archives listed in TOOLS.yml (the uniffi-bindgen
release for the current platform, mainly) into the workspace .tools directory.
Entries whose checksum and URL didn't change since the last run are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		update, err := cmd.Flags().GetBool("update")
		if err != nil {
			return err
		}

		pkg.PrintTask("Loading config")
		root, err := pkg.GetProjectRoot()
		if err != nil {
			return err
		}

		cfg, cfgData, stamps, err := readToolsConfig(root)
		if err != nil {
			return err
		}

		pkg.PrintTask("Downloading toolchain")
		newChecksums, err := fetchTools(cfg, stamps, root, update)

		// persist stamps even on partial failure so finished downloads
		// aren't repeated
		stampData, jErr := json.Marshal(stamps)
		if jErr == nil {
			jErr = os.WriteFile(stampsPath(root), stampData, os.FileMode(0660))
		}
		if jErr != nil {
			pkg.PrintError(jErr.Error())
		}

		if err != nil {
			return err
		}

		if update && len(newChecksums) > 0 {
			pkg.PrintTask("Updating TOOLS.yml")
			err = updateChecksums(root, cfgData, cfg, newChecksums)
			if err != nil {
				return err
			}
		}

		pkg.PrintTask("Done")
		return nil
	},
}

func init() {
	fetchToolsCmd.Flags().BoolP("update", "u", false, "update recorded checksums instead of failing on mismatch")
	rootCmd.AddCommand(fetchToolsCmd)
}

func toolsConfigPath(projectRoot string) string {
	return filepath.Join(projectRoot, "TOOLS.yml")
}

func stampsPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".tools", "TOOLS.stamps")
}

func readToolsConfig(projectRoot string) (toolsConfig, string, map[string]string, error) {
	var cfg toolsConfig

	cfgPath := toolsConfigPath(projectRoot)
	cfgData, err := os.ReadFile(cfgPath)
	if err != nil {
		return cfg, "", nil, eris.Wrapf(err, "Could not open file %s.", cfgPath)
	}

	err = yaml.Unmarshal(cfgData, &cfg)
	if err != nil {
		return cfg, "", nil, eris.Wrapf(err, "Failed to parse %s.", cfgPath)
	}

	stamps := map[string]string{}
	stampData, err := os.ReadFile(stampsPath(projectRoot))
	if err != nil {
		if !eris.Is(err, os.ErrNotExist) {
			return cfg, "", nil, eris.Wrapf(err, "Failed to read stamps file %s.", stampsPath(projectRoot))
		}
	} else {
		err = json.Unmarshal(stampData, &stamps)
		if err != nil {
			return cfg, "", nil, eris.Wrapf(err, "Failed to parse %s.", stampsPath(projectRoot))
		}
	}

	return cfg, string(cfgData), stamps, nil
}

var varPattern = regexp.MustCompile(`\{([A-Z0-9_]+)\}`)

// evalConditions substitutes {VAR} placeholders in the URL and checks the
// entry's if/ifNot variable conditions.
func evalConditions(meta *toolSpec, vars map[string]string) bool {
	meta.URL = varPattern.ReplaceAllStringFunc(meta.URL, func(varName string) string {
		return vars[varName[1:len(varName)-1]]
	})

	for _, condition := range strings.Split(meta.Condition, ",") {
		if condition == "" {
			continue
		}

		if vars[strings.TrimSpace(condition)] == "" {
			return false
		}
	}

	for _, condition := range strings.Split(meta.Rejections, ",") {
		if condition == "" {
			continue
		}

		if vars[strings.TrimSpace(condition)] != "" {
			return false
		}
	}
	return true
}

func getProgressBar(length int64, desc string) *progressbar.ProgressBar {
	if os.Getenv("CI") == "true" {
		return progressbar.NewOptions64(length, progressbar.OptionSetVisibility(false))
	}

	return progressbar.DefaultBytes(length, desc)
}

func fetchTools(cfg toolsConfig, stamps map[string]string, projectRoot string, update bool) (map[string]string, error) {
	client := &http.Client{
		Timeout: time.Minute * 30,
	}

	vars := cfg.Vars
	if vars == nil {
		vars = map[string]string{}
	}
	vars[runtime.GOARCH] = "true"
	vars[runtime.GOOS] = "true"
	if os.Getenv("CI") == "true" {
		vars["ci"] = "true"
	}

	newChecksums := map[string]string{}
	for name, meta := range cfg.Tools {
		// conditions are evaluated even for skipped entries because the
		// variable placeholders have to be resolved either way
		skip := !evalConditions(&meta, vars)
		if skip && !update {
			continue
		}

		if meta.Dest == "" {
			meta.Dest = ".tools"
		}

		destPath := filepath.Join(projectRoot, meta.Dest)
		destInfo, err := os.Stat(destPath)
		destExists := err == nil

		stampToken := meta.URL + "#" + meta.Sha256
		if stamp, ok := stamps[name]; ok && stampToken == stamp && destExists {
			continue
		}

		if meta.Sha256 == "" && !update {
			return newChecksums, eris.Errorf("Tool %s doesn't have a checksum", name)
		}

		pkg.PrintSubtask(name + ":  " + meta.URL)
		digest, archive, err := downloadArchive(client, meta.URL)
		if archive != "" {
			defer os.Remove(archive)
		}
		if err != nil {
			return newChecksums, err
		}

		if digest != meta.Sha256 {
			if !update {
				return newChecksums, eris.Errorf("Checksum check failed for %s", name)
			}

			fmt.Println("      Updating checksum")
			newChecksums[name] = digest
		}

		if skip {
			continue
		}

		if destExists && meta.Dest != ".tools" {
			pkg.PrintSubtask(fmt.Sprintf("Remove %s", destPath))
			if destInfo.IsDir() {
				err = os.RemoveAll(destPath)
			} else {
				err = os.Remove(destPath)
			}
			if err != nil {
				return newChecksums, err
			}
		}

		err = extractArchive(archive, meta.URL, destPath, meta)
		if err != nil {
			return newChecksums, err
		}

		if runtime.GOOS != "windows" {
			// .zip files don't carry permissions, binaries from them have to
			// be marked executable by hand
			for _, binPath := range meta.MarkExec {
				binPath = filepath.Join(destPath, binPath)
				fi, err := os.Stat(binPath)
				if err != nil {
					return newChecksums, eris.Wrapf(err, "Failed to read permissions for %s", binPath)
				}

				err = os.Chmod(binPath, fi.Mode()|0700)
				if err != nil {
					return newChecksums, eris.Wrapf(err, "Failed to mark %s as executable", binPath)
				}
			}
		}

		stamps[name] = stampToken
	}

	return newChecksums, nil
}

// downloadArchive streams the URL into a temp file and returns the sha256
// digest and the temp file path.
func downloadArchive(client *http.Client, url string) (string, string, error) {
	handle, err := os.CreateTemp("", "tools_dl")
	if err != nil {
		return "", "", eris.Wrap(err, "Failed to create temporary download file")
	}
	defer handle.Close()

	resp, err := client.Get(url)
	if err != nil {
		return "", handle.Name(), eris.Wrapf(err, "Failed to start download for %s", url)
	}
	defer resp.Body.Close()

	hash := sha256.New()
	bar := getProgressBar(resp.ContentLength, "     download")
	defer bar.Finish()

	_, err = io.Copy(io.MultiWriter(handle, hash, bar), resp.Body)
	if err != nil {
		return "", handle.Name(), eris.Wrapf(err, "Failed during download of %s", url)
	}

	return hex.EncodeToString(hash.Sum(nil)), handle.Name(), nil
}

// updateChecksums rewrites the recorded sha256 values in place, leaving the
// rest of the file (comments included) untouched.
func updateChecksums(projectRoot, cfgData string, cfg toolsConfig, changes map[string]string) error {
	generated := cfgData
	for name, newChecksum := range changes {
		pos := strings.Index(generated, name+":\n")
		if pos == -1 {
			return eris.Errorf("Failed to find the section for %s!", name)
		}

		old := cfg.Tools[name].Sha256
		if old == "" {
			start := pos + len(name) + 2
			generated = generated[:start] + "    sha256: " + newChecksum + "\n" + generated[start:]
			continue
		}

		subPos := strings.Index(generated[pos:], "sha256: "+old)
		if subPos == -1 {
			fmt.Printf("     Couldn't find checksum section for %s.\n", name)
			continue
		}

		start := pos + subPos + 8
		generated = generated[:start] + newChecksum + generated[start+len(old):]
	}

	return os.WriteFile(toolsConfigPath(projectRoot), []byte(generated), os.FileMode(0660))
}
