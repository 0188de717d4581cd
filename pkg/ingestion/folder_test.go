package ingestion

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/docboxhq/docbox/pkg/db"
	"github.com/docboxhq/docbox/pkg/errtypes"
)

func TestEnsureNotRoot(t *testing.T) {
	root := &db.Folder{ID: uuid.New(), ParentID: nil}
	parent := uuid.New()
	child := &db.Folder{ID: uuid.New(), ParentID: &parent}

	err := ensureNotRoot(root, "the scope root folder can only be removed by deleting the scope")
	assert.Error(t, err)
	assert.True(t, errtypes.IsInvalidInputErr(err))

	assert.NoError(t, ensureNotRoot(child, "irrelevant"))
}

// TestExpandFolderFrameOrder pins the stack push order drainDeleteStack
// relies on: the folder's own empty-folder sentinel goes on first (so it
// pops last), then children, then files, then links.
func TestExpandFolderFrameOrder(t *testing.T) {
	folderID := uuid.New()
	child := db.Folder{ID: uuid.New(), Name: "child"}
	file := db.File{ID: uuid.New(), Name: "file"}
	link := db.Link{ID: uuid.New(), Name: "link"}

	frames := expandFolderFrame(folderID, "root", []db.Folder{child}, []db.File{file}, []db.Link{link})

	assert.Equal(t, []itemKind{kindEmptyFolder, kindFolder, kindFile, kindLink}, []itemKind{
		frames[0].kind, frames[1].kind, frames[2].kind, frames[3].kind,
	})
	assert.Equal(t, folderID, frames[0].id)
	assert.Equal(t, child.ID, frames[1].id)
	assert.Equal(t, file.ID, frames[2].id)
	assert.Equal(t, link.ID, frames[3].id)
}

// TestDeleteTraversalOrderLinkBeforeFile replays the stack a delete of a
// folder containing one subfolder (holding a file) and one link directly
// underneath it would produce, confirming the LIFO traversal visits the
// link before the nested file — the documented divergence from the plain
// reading of the delete-folder scenario's prose (see DESIGN.md).
func TestDeleteTraversalOrderLinkBeforeFile(t *testing.T) {
	root := uuid.New()
	subfolder := db.Folder{ID: uuid.New(), Name: "A"}
	file := db.File{ID: uuid.New(), Name: "F"}
	link := db.Link{ID: uuid.New(), Name: "L"}

	// Root folder expands to: subfolder A, link L (no files directly in root).
	stack := expandFolderFrame(root, "root", []db.Folder{subfolder}, nil, []db.Link{link})

	var visitOrder []itemKind
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch cur.kind {
		case kindFolder:
			// Subfolder A expands to: file F.
			stack = append(stack, expandFolderFrame(cur.id, cur.name, nil, []db.File{file}, nil)...)
		default:
			visitOrder = append(visitOrder, cur.kind)
		}
	}

	// Link L is popped (and would be deleted) before file F: the link sits
	// directly on root's stack frame above the subfolder, so it's popped
	// before the subfolder is ever expanded.
	assert.Equal(t, []itemKind{kindLink, kindFile, kindEmptyFolder, kindEmptyFolder}, visitOrder)
}
