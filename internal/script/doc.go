// Package script runs the operator's custom command file.
//
// The file is a line-oriented list of input actions:
//
//	# comments and blank lines are ignored
//	t = 随机移动时间(1.5 3.0)
//	按下(w)
//	等待(t)
//	释放(w)
//
//	指定 -> 老张
//	随机移动(随机移动时间)
//	ctrl技能(lcontrol 4.3)
//
// Lines before the first "指定 -> name" directive form the common block.
// Each directive opens a character block that replaces the common block
// whenever the current character's name contains the block's name.
//
// The file is parsed once per modification time. Parse errors stay on
// the line they came from and only that line is skipped at run time.
package script
