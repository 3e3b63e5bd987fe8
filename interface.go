package powercart

type Interface interface {
	// 读取游戏槽信息
	LoadDirectory() ([]Slot, error)

	// 列出可擦除的游戏槽及其标题
	ListCandidates() ([]Candidate, error)

	// 擦除一个游戏槽的存档
	EraseSlot(index int, progress ProgressFunc) (Result, error)

	// 擦除全部游戏槽的存档
	EraseAll(progress ProgressFunc) ([]Result, error)

	// 恢复菜单状态
	Recover() error
}

var _ Interface = (*Engine)(nil)
