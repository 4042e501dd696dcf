package meshio

import "fmt"

// tetFaces lists each tetrahedron face by local vertex indices.
var tetFaces = [4][3]int{
	{0, 1, 2},
	{0, 1, 3},
	{1, 2, 3},
	{0, 2, 3},
}

// ExtractBoundary returns the exterior triangular faces of a
// tetrahedral element-to-vertex connectivity. A face shared by two
// elements is interior; a face seen exactly once lies on the boundary.
// Faces keep the orientation of their owning element and are returned
// in first-seen order.
func ExtractBoundary(etov [][]int) ([][3]int, error) {
	if len(etov) == 0 {
		return nil, fmt.Errorf("mesh does not have any tets")
	}

	type faceKey [3]int
	count := make(map[faceKey]int, len(etov)*4)
	oriented := make(map[faceKey][3]int, len(etov)*4)
	var order []faceKey

	for k, elem := range etov {
		if len(elem) != 4 {
			return nil, fmt.Errorf("element %d has %d vertices, only tetrahedra are supported", k, len(elem))
		}
		for _, lf := range tetFaces {
			face := [3]int{elem[lf[0]], elem[lf[1]], elem[lf[2]]}
			key := faceKey(sorted3(face))
			if count[key] == 0 {
				order = append(order, key)
				oriented[key] = face
			}
			count[key]++
		}
	}

	var exterior [][3]int
	for _, key := range order {
		switch count[key] {
		case 1:
			exterior = append(exterior, oriented[key])
		case 2:
			// Interior face, shared by exactly two elements.
		default:
			return nil, fmt.Errorf("face %v is shared by %d elements, connectivity is not manifold", key, count[key])
		}
	}
	return exterior, nil
}

func sorted3(f [3]int) [3]int {
	if f[0] > f[1] {
		f[0], f[1] = f[1], f[0]
	}
	if f[1] > f[2] {
		f[1], f[2] = f[2], f[1]
	}
	if f[0] > f[1] {
		f[0], f[1] = f[1], f[0]
	}
	return f
}
