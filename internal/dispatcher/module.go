package dispatcher

import "os"

func readModuleFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
