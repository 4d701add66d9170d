// Package gmtx 负责解析 GMTX 制表符分隔文件。
// 第 0 行是表头，表头最后一列必须是 'genes' 或 'genes | <coeffType>'；
// 从基因起始列开始，每个单元格是一个基因 token，带系数时形如 '<gene> | <coeff>'。
package gmtx

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Parse 从 reader 解析 GMTX 内容，返回表头行和数据行。
// 只做行级切分，不做任何列语义校验；空行被跳过。
func Parse(r io.Reader) (header []string, rows [][]string, err error) {
	scanner := bufio.NewScanner(r)
	// GMTX 行可能包含上千个基因，放宽单行缓冲上限
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var lines [][]string
	for scanner.Scan() {
		line := strings.Trim(scanner.Text(), "\t\n\r")
		if line == "" {
			continue
		}
		lines = append(lines, strings.Split(line, "\t"))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		return nil, nil, nil
	}
	return lines[0], lines[1:], nil
}

// ParseFile 解析指定路径的 GMTX 文件。
func ParseFile(path string) (header []string, rows [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return Parse(f)
}
