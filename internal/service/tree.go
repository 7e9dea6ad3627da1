package service

import (
	"fmt"
	"sort"

	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/repository"
)

// BuildForest собирает из плоской выборки дерево для каждой корневой папки.
// Первый проход создаёт узлы, второй связывает их с родителями. Строка, чей
// parent_id не встречается в выборке, считается корнем: для корректно
// ограниченного рекурсивного запроса это не случается, но падать здесь нельзя.
// Дети и файлы каждого узла отсортированы по возрастанию порядка.
func BuildForest(rows []repository.TreeRow) []*domain.FolderNode {
	nodes := make(map[string]*domain.FolderNode, len(rows))
	for _, row := range rows {
		files := make([]domain.File, len(row.Files))
		copy(files, row.Files)
		sort.Slice(files, func(i, j int) bool { return files[i].Order < files[j].Order })

		nodes[row.ID.String()] = &domain.FolderNode{
			Folder: domain.Folder{
				ID:         row.ID,
				Name:       row.Name,
				OwnerID:    row.OwnerID,
				ParentID:   row.ParentID,
				AccessType: row.AccessType,
				Order:      row.Ord,
			},
			Children: []*domain.FolderNode{},
			Files:    files,
		}
	}

	var roots []*domain.FolderNode
	for _, row := range rows {
		node := nodes[row.ID.String()]
		if row.ParentID != nil {
			if parent, ok := nodes[row.ParentID.String()]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	for _, node := range nodes {
		children := node.Children
		sort.Slice(children, func(i, j int) bool { return children[i].Order < children[j].Order })
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Order < roots[j].Order })

	return roots
}

// BuildSubtree собирает одно поддерево из выборки, ограниченной его корнем.
// Пустая выборка означает, что запрошенной папки нет или она недоступна.
func BuildSubtree(rows []repository.TreeRow) (*domain.FolderNode, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: folder", domain.ErrNotFound)
	}

	roots := BuildForest(rows)
	if len(roots) != 1 {
		// При корректной выборке поддерева корень ровно один.
		return nil, fmt.Errorf("expected single subtree root, got %d", len(roots))
	}

	return roots[0], nil
}
