// This file is part of go-mc/server project.
// Copyright (C) 2023.  Tnze
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package world

// ChunkViewer is told about chunks entering and leaving the loaded set.
type ChunkViewer interface {
	// ViewChunkLoad is called after the stored entities of the chunk were
	// registered in the scene.
	ViewChunkLoad(region, chunk IVec3, entities int)
	// ViewChunkUnload is called after the chunk was unloaded.
	ViewChunkUnload(region, chunk IVec3)
}
